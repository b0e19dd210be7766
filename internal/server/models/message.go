package models

import "time"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one persisted chat turn. CreatedAt is assigned by the store.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ModelTag  string    `json:"model_tag"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
