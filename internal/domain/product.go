package domain

import "time"

type Product struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Stock       int            `json:"stock"`
	CategoryID  *string        `json:"category,omitempty"`
	Images      []ProductImage `json:"images"`
	Rating      float64        `json:"rating"`
	NumReviews  int            `json:"numReviews"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// PrimaryImage returns the URL used for cart and order snapshots.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

type ProductImage struct {
	ID string `json:"id"`
	Image
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product"`
	UserID    string    `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}
