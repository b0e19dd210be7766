package models

import "time"

// Model is a catalog row. Tag is the unique routing key used by the
// provider layer.
type Model struct {
	ID          string    `json:"id"`
	Tag         string    `json:"tag"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
