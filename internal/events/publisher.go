package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Esscraye/conformit/internal/model"
)

const (
	// StreamName is the name of the chat-turn event stream.
	StreamName = "CHAT_TURNS"

	// SubjectPrefix is the prefix for all turn subjects.
	SubjectPrefix = "chat"
)

// Publisher publishes chat-turn events to JetStream. A nil Publisher
// drops events silently, so callers need no bus-present checks.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher on the given client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the chat-turn stream exists.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Settled chat turns and turn failures",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// TurnSubject returns the subject for a turn event.
func TurnSubject(chatID string, typ model.TurnEventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, chatID, typ)
}

// Publish publishes a turn event.
func (p *Publisher) Publish(ctx context.Context, ev *model.TurnEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, TurnSubject(ev.ChatID, ev.Type), data); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}
	return nil
}
