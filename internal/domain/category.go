package domain

import "time"

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}
