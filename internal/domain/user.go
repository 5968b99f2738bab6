package domain

import "time"

// Role gates access to admin routes.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Image references an object in image storage.
type Image struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// User is a registered shopper or administrator.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	Country      string    `json:"country,omitempty"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	ProfilePic   *Image    `json:"profilePic,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
