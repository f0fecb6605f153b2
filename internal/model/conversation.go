package model

import "time"

// Conversation metadata. The chat ID is assigned by the caller (the
// session/thread identifier), not generated by the store. The owner is
// whoever sent the first message; the title is that message's content.
type Conversation struct {
	ChatID     string    `json:"chat_id"`
	Title      string    `json:"title"`
	OwnerEmail string    `json:"owner_email"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConversationSummary is one row of an owner's conversation listing.
type ConversationSummary struct {
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ListConversationsResponse is the response for listing conversations,
// sorted by created_at descending.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}
