package model

import "time"

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn entry in a conversation. Immutable once written;
// ordering is insertion order within its conversation.
type Message struct {
	ID        string    `json:"message_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessageRequest is the request to run a chat turn.
type SendMessageRequest struct {
	Content     string  `json:"content"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// TokenEvent is a streaming token SSE payload.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// MessageCompleteEvent signals that the assistant message was committed.
type MessageCompleteEvent struct {
	Message Message `json:"message"`
}

// ErrorEvent is an error SSE payload.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
