package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
)

// OrderStatuses lists statuses in lifecycle order.
var OrderStatuses = []OrderStatus{StatusProcessing, StatusShipped, StatusDelivered}

// ParseOrderStatus accepts a status name case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) rank() int {
	for i, st := range OrderStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the status that follows s. It is false for delivered.
func (s OrderStatus) Next() (OrderStatus, bool) {
	r := s.rank()
	if r < 0 || r+1 >= len(OrderStatuses) {
		return "", false
	}
	return OrderStatuses[r+1], true
}

// CanMoveTo reports whether target is strictly later in the lifecycle.
func (s OrderStatus) CanMoveTo(target OrderStatus) bool {
	return target.rank() > s.rank() && s.rank() >= 0
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

type ShippingInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type PaymentInfo struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
}

// OrderItem is copied from the product at order time and never re-read.
type OrderItem struct {
	ProductID string `json:"product"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// OrderCustomer is the user summary attached to admin listings.
type OrderCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user"`
	Customer        *OrderCustomer `json:"customer,omitempty"`
	ShippingInfo    ShippingInfo   `json:"shippingInfo"`
	Items           []OrderItem    `json:"orderItems"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod"`
	PaymentInfo     *PaymentInfo   `json:"paymentInfo,omitempty"`
	ItemPrice       int64          `json:"itemPrice"`
	Tax             int64          `json:"tax"`
	ShippingCharges int64          `json:"shippingCharges"`
	TotalAmount     int64          `json:"totalAmount"`
	Status          OrderStatus    `json:"orderStatus"`
	PaidAt          *time.Time     `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time     `json:"deliveredAt,omitempty"`
	IdempotencyKey  string         `json:"-"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
