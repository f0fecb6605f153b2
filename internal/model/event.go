package model

import "time"

// TurnEventType classifies chat-turn events published on the event bus.
type TurnEventType string

const (
	TurnEventCommitted TurnEventType = "committed"
	TurnEventError     TurnEventType = "error"
	TurnEventCancel    TurnEventType = "cancel"
)

// TurnEvent is published after a chat turn settles, for downstream
// transports (session UIs, audit consumers).
type TurnEvent struct {
	ID         string        `json:"id"`
	ChatID     string        `json:"chat_id"`
	OwnerEmail string        `json:"owner_email"`
	Type       TurnEventType `json:"type"`
	Role       Role          `json:"role,omitempty"`
	MessageID  string        `json:"message_id,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
