package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/pkg/logger"
	"github.com/Esscraye/conformit/pkg/metrics"
)

const truncateAttempts = 5

// ConversationStore holds one record per conversation: a metadata value,
// a message list, and a per-owner index.
//
// Appends use RPUSH, a server-side list-append primitive, so two
// concurrent appends to the same chat ID are both recorded; the
// read-modify-write lost-update race of naive designs cannot occur.
// Conversation creation uses SETNX, so concurrent first messages race
// safely: the first writer's title and owner win, both messages land.
type ConversationStore struct {
	client *redis.Client
	logger *logger.Logger
}

// NewConversationStore creates a conversation store backed by the given
// Redis client.
func NewConversationStore(client *redis.Client, log *logger.Logger) *ConversationStore {
	return &ConversationStore{client: client, logger: log}
}

func convKey(chatID string) string {
	return "conv:" + chatID
}

func messagesKey(chatID string) string {
	return "conv:" + chatID + ":messages"
}

func ownerKey(email string) string {
	return "owner:" + email + ":convs"
}

// AppendOrCreate appends msg to the conversation's message list, creating
// the conversation first if chatID is unseen. A new conversation takes the
// message content as its title and sender as its owner, and is added to
// the owner's index scored by creation time.
func (s *ConversationStore) AppendOrCreate(ctx context.Context, chatID string, msg model.Message, sender string) error {
	sender = NormalizeEmail(sender)

	meta := model.Conversation{
		ChatID:     chatID,
		Title:      msg.Content,
		OwnerEmail: sender,
		CreatedAt:  msg.Timestamp,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var created bool
	err = withRetry(ctx, "conversation_create", func() error {
		var err error
		created, err = s.client.SetNX(ctx, convKey(chatID), metaJSON, 0).Result()
		return err
	})
	if err != nil {
		return err
	}

	if created {
		err = withRetry(ctx, "owner_index", func() error {
			return s.client.ZAdd(ctx, ownerKey(sender), &redis.Z{
				Score:  float64(msg.Timestamp.UnixNano()),
				Member: chatID,
			}).Err()
		})
		if err != nil {
			return err
		}
		metrics.ConversationsTotal.Inc()
		s.logger.Info("conversation created",
			zap.String("chat_id", chatID),
			zap.String("owner", sender),
		)
	}

	err = withRetry(ctx, "message_append", func() error {
		return s.client.RPush(ctx, messagesKey(chatID), msgJSON).Err()
	})
	if err != nil {
		return err
	}

	metrics.MessagesTotal.WithLabelValues(string(msg.Role)).Inc()
	return nil
}

// Get fetches conversation metadata. Returns model.ErrNotFound when the
// chat ID is unknown.
func (s *ConversationStore) Get(ctx context.Context, chatID string) (*model.Conversation, error) {
	var data string
	err := withRetry(ctx, "conversation_get", func() error {
		var err error
		data, err = s.client.Get(ctx, convKey(chatID)).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var meta model.Conversation
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation %s: %w", chatID, err)
	}
	return &meta, nil
}

// ListByOwner returns the owner's conversations sorted by created_at
// descending. The per-owner sorted set makes this an indexed lookup, not
// a table scan. An owner with no conversations gets an empty slice.
func (s *ConversationStore) ListByOwner(ctx context.Context, owner string) ([]model.ConversationSummary, error) {
	owner = NormalizeEmail(owner)

	var chatIDs []string
	err := withRetry(ctx, "conversation_list", func() error {
		var err error
		chatIDs, err = s.client.ZRevRange(ctx, ownerKey(owner), 0, -1).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ConversationSummary, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		meta, err := s.Get(ctx, chatID)
		if errors.Is(err, model.ErrNotFound) {
			// Index entry without a meta record; skip rather than fail
			// the whole listing.
			s.logger.Warn("dangling owner index entry", zap.String("chat_id", chatID))
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, model.ConversationSummary{
			ChatID:    meta.ChatID,
			Title:     meta.Title,
			CreatedAt: meta.CreatedAt,
		})
	}
	return summaries, nil
}

// GetMessages returns the conversation's messages in insertion order.
// An unknown chat ID yields an empty slice, not an error.
func (s *ConversationStore) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	var items []string
	err := withRetry(ctx, "messages_get", func() error {
		var err error
		items, err = s.client.LRange(ctx, messagesKey(chatID), 0, -1).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(items))
	for _, raw := range items {
		var msg model.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message in %s: %w", chatID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// TruncateAfter discards messageID and everything after it, leaving prior
// messages untouched. Used to regenerate a conversation from a given
// point. Runs as a WATCH/MULTI optimistic transaction retried on
// conflict, so a concurrent append cannot be trimmed away silently.
// Returns model.ErrNotFound when the chat or message does not exist.
func (s *ConversationStore) TruncateAfter(ctx context.Context, chatID, messageID string) error {
	exists, err := s.client.Exists(ctx, convKey(chatID)).Result()
	if err != nil {
		return fmt.Errorf("store truncate: %w: %v", model.ErrUnavailable, err)
	}
	if exists == 0 {
		return model.ErrNotFound
	}

	key := messagesKey(chatID)
	txf := func(tx *redis.Tx) error {
		items, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}

		idx := -1
		for i, raw := range items {
			var msg model.Message
			if err := json.Unmarshal([]byte(raw), &msg); err != nil {
				return fmt.Errorf("failed to unmarshal message in %s: %w", chatID, err)
			}
			if msg.ID == messageID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if idx == 0 {
				pipe.Del(ctx, key)
			} else {
				pipe.LTrim(ctx, key, 0, int64(idx-1))
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < truncateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			s.logger.Info("conversation truncated",
				zap.String("chat_id", chatID),
				zap.String("from_message", messageID),
			)
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			metrics.StoreRetriesTotal.WithLabelValues("truncate").Inc()
			continue
		}
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("store truncate: %w: %v", model.ErrUnavailable, err)
	}
	return fmt.Errorf("store truncate: %w: transaction kept conflicting", model.ErrUnavailable)
}
