package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/pkg/logger"
)

func newTestConversationStore(t *testing.T) *ConversationStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewConversationStore(client, logger.NewNop())
}

func userMessage(content string) model.Message {
	return model.Message{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestAppendOrCreate_FirstMessageCreatesConversation(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	msg := userMessage("What is the capital of France?")
	if err := store.AppendOrCreate(ctx, chatID, msg, "Alice@Example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}

	meta, err := store.Get(ctx, chatID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if meta.Title != msg.Content {
		t.Errorf("Title = %q, want first message content", meta.Title)
	}
	if meta.OwnerEmail != "alice@example.com" {
		t.Errorf("OwnerEmail = %q, want normalized email", meta.OwnerEmail)
	}
}

func TestAppendOrCreate_PreservesOrder(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	const n = 10
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("message %d", i)
		want = append(want, content)
		if err := store.AppendOrCreate(ctx, chatID, userMessage(content), "alice@example.com"); err != nil {
			t.Fatalf("AppendOrCreate(%d) error = %v", i, err)
		}
	}

	messages, err := store.GetMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != n {
		t.Fatalf("got %d messages, want %d", len(messages), n)
	}
	for i, msg := range messages {
		if msg.Content != want[i] {
			t.Errorf("messages[%d].Content = %q, want %q", i, msg.Content, want[i])
		}
	}
}

func TestAppendOrCreate_SecondMessageKeepsOriginalTitle(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	if err := store.AppendOrCreate(ctx, chatID, userMessage("first"), "alice@example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}
	if err := store.AppendOrCreate(ctx, chatID, userMessage("second"), "alice@example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}

	meta, err := store.Get(ctx, chatID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if meta.Title != "first" {
		t.Errorf("Title = %q, want %q", meta.Title, "first")
	}
}

func TestAppendOrCreate_ConcurrentAppendsAllRecorded(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := userMessage(fmt.Sprintf("concurrent %d", i))
			errs <- store.AppendOrCreate(ctx, chatID, msg, "alice@example.com")
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AppendOrCreate() error = %v", err)
		}
	}

	messages, err := store.GetMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != writers {
		t.Errorf("got %d messages, want %d: a concurrent append was lost", len(messages), writers)
	}
}

func TestGet_UnknownChatID(t *testing.T) {
	store := newTestConversationStore(t)

	if _, err := store.Get(context.Background(), uuid.New().String()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestGetMessages_UnknownChatIDIsEmpty(t *testing.T) {
	store := newTestConversationStore(t)

	messages, err := store.GetMessages(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("got %d messages, want 0", len(messages))
	}
}

func TestListByOwner_NewestFirst(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	var chatIDs []string
	for i := 0; i < 3; i++ {
		chatID := uuid.New().String()
		chatIDs = append(chatIDs, chatID)
		msg := model.Message{
			ID:        uuid.New().String(),
			Role:      model.RoleUser,
			Content:   fmt.Sprintf("conversation %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendOrCreate(ctx, chatID, msg, "alice@example.com"); err != nil {
			t.Fatalf("AppendOrCreate() error = %v", err)
		}
	}

	summaries, err := store.ListByOwner(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("got %d conversations, want 3", len(summaries))
	}
	for i, want := range []string{chatIDs[2], chatIDs[1], chatIDs[0]} {
		if summaries[i].ChatID != want {
			t.Errorf("summaries[%d].ChatID = %q, want %q", i, summaries[i].ChatID, want)
		}
	}
}

func TestListByOwner_DoesNotLeakOtherOwners(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()

	if err := store.AppendOrCreate(ctx, uuid.New().String(), userMessage("mine"), "alice@example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}
	if err := store.AppendOrCreate(ctx, uuid.New().String(), userMessage("theirs"), "bob@example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}

	summaries, err := store.ListByOwner(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d conversations, want 1", len(summaries))
	}
	if summaries[0].Title != "mine" {
		t.Errorf("Title = %q, want %q", summaries[0].Title, "mine")
	}
}

func TestListByOwner_NoConversations(t *testing.T) {
	store := newTestConversationStore(t)

	summaries, err := store.ListByOwner(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d conversations, want 0", len(summaries))
	}
}

func TestTruncateAfter_DropsTargetAndLater(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	var ids []string
	for i := 0; i < 5; i++ {
		msg := userMessage(fmt.Sprintf("message %d", i))
		ids = append(ids, msg.ID)
		if err := store.AppendOrCreate(ctx, chatID, msg, "alice@example.com"); err != nil {
			t.Fatalf("AppendOrCreate() error = %v", err)
		}
	}

	if err := store.TruncateAfter(ctx, chatID, ids[2]); err != nil {
		t.Fatalf("TruncateAfter() error = %v", err)
	}

	messages, err := store.GetMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages after truncate, want 2", len(messages))
	}
	for i, msg := range messages {
		if msg.ID != ids[i] {
			t.Errorf("messages[%d].ID = %q, want %q", i, msg.ID, ids[i])
		}
	}
}

func TestTruncateAfter_FirstMessageEmptiesList(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	msg := userMessage("only message")
	if err := store.AppendOrCreate(ctx, chatID, msg, "alice@example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}
	if err := store.TruncateAfter(ctx, chatID, msg.ID); err != nil {
		t.Fatalf("TruncateAfter() error = %v", err)
	}

	messages, err := store.GetMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("got %d messages, want 0", len(messages))
	}

	// Metadata survives truncation; only the window is trimmed.
	if _, err := store.Get(ctx, chatID); err != nil {
		t.Errorf("Get() after full truncate error = %v", err)
	}
}

func TestTruncateAfter_UnknownChat(t *testing.T) {
	store := newTestConversationStore(t)

	err := store.TruncateAfter(context.Background(), uuid.New().String(), uuid.New().String())
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("TruncateAfter(unknown chat) error = %v, want ErrNotFound", err)
	}
}

func TestTruncateAfter_UnknownMessage(t *testing.T) {
	store := newTestConversationStore(t)
	ctx := context.Background()
	chatID := uuid.New().String()

	if err := store.AppendOrCreate(ctx, chatID, userMessage("hello"), "alice@example.com"); err != nil {
		t.Fatalf("AppendOrCreate() error = %v", err)
	}

	err := store.TruncateAfter(ctx, chatID, uuid.New().String())
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("TruncateAfter(unknown message) error = %v, want ErrNotFound", err)
	}

	messages, err := store.GetMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("got %d messages, want 1: failed truncate must not modify the list", len(messages))
	}
}
