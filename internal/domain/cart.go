package domain

import "time"

// Cart is the single pending basket owned by a user.
type Cart struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user"`
	Items       []CartItem `json:"cartItems"`
	TotalItems  int        `json:"totalItems"`
	TotalAmount int64      `json:"totalAmount"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty"`
}

// CartItem snapshots the product at the time it was added.
type CartItem struct {
	ProductID string `json:"product"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// EmptyCart returns a zero-total cart for userID.
func EmptyCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

// Recalculate derives TotalItems and TotalAmount from the line items.
// It must run after every mutation of Items.
func (c *Cart) Recalculate() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	var items int
	var amount int64
	for _, it := range c.Items {
		items += it.Quantity
		amount += it.Price * int64(it.Quantity)
	}
	c.TotalItems = items
	c.TotalAmount = amount
}

// IndexOf returns the position of productID in Items or -1.
func (c *Cart) IndexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Remove drops the line for productID and reports whether it existed.
func (c *Cart) Remove(productID string) bool {
	idx := c.IndexOf(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}
