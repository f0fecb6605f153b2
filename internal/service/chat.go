// Package service provides the chat-turn business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/events"
	"github.com/Esscraye/conformit/internal/llm"
	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/logger"
	"github.com/Esscraye/conformit/pkg/metrics"
)

// turnState tracks one chat turn through its lifecycle.
type turnState int

const (
	turnIdle turnState = iota
	turnStreaming
	turnCommitted
)

func (t turnState) String() string {
	switch t {
	case turnStreaming:
		return "streaming"
	case turnCommitted:
		return "committed"
	default:
		return "idle"
	}
}

// TokenCallback is called for each token during streaming.
type TokenCallback func(token string, index int) error

// Options configures chat-turn defaults passed through to the LLM.
type Options struct {
	SystemPrompt string
	DefaultModel string
	Temperature  float64
	MaxTokens    int
}

// ChatService runs chat turns: it streams the LLM reply to the caller and
// commits the user and assistant messages on pipeline completion.
type ChatService struct {
	conversations *store.ConversationStore
	llmClient     llm.Client
	events        *events.Publisher
	logger        *logger.Logger
	opts          Options
}

// NewChatService creates a chat service. publisher may be nil when no
// event bus is configured.
func NewChatService(
	conversations *store.ConversationStore,
	llmClient llm.Client,
	publisher *events.Publisher,
	log *logger.Logger,
	opts Options,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		llmClient:     llmClient,
		events:        publisher,
		logger:        log,
		opts:          opts,
	}
}

// Send runs one turn for chatID on behalf of owner. The turn moves
// Idle -> Streaming -> Committed: tokens are forwarded through onToken as
// they arrive, and only after the pipeline completes are the user and
// assistant messages appended to the store. A cancelled or failed stream
// persists nothing, so a client disconnect mid-stream cannot leave a
// half-written message behind.
//
// The two appends are not transactional: a crash between them leaves the
// user turn persisted without its reply. That window is logged, not
// hidden.
func (s *ChatService) Send(
	ctx context.Context,
	chatID, owner string,
	req *model.SendMessageRequest,
	onToken TokenCallback,
) (*model.Message, *model.Message, error) {
	if s.llmClient == nil {
		return nil, nil, errors.New("no LLM provider configured")
	}

	state := turnIdle

	history, err := s.conversations.GetMessages(ctx, chatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}

	chatMessages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		chatMessages = append(chatMessages, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	chatMessages = append(chatMessages, llm.ChatMessage{
		Role:    string(model.RoleUser),
		Content: req.Content,
	})

	modelName := req.Model
	if modelName == "" {
		modelName = s.opts.DefaultModel
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = s.opts.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.opts.MaxTokens
	}

	state = turnStreaming
	streamStart := time.Now()

	resp, err := s.llmClient.CompleteStream(ctx, &llm.CompletionRequest{
		Model:       modelName,
		System:      s.opts.SystemPrompt,
		Messages:    chatMessages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      true,
	}, llm.StreamCallback(onToken))
	if err != nil {
		s.reportFailure(ctx, chatID, owner, state, err)
		return nil, nil, fmt.Errorf("LLM stream failed: %w", err)
	}

	now := time.Now()
	userMsg := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Content:   req.Content,
		Timestamp: now,
	}
	if err := s.conversations.AppendOrCreate(ctx, chatID, userMsg, owner); err != nil {
		return nil, nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	assistantMsg := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   resp.Content,
		Timestamp: time.Now(),
	}
	if err := s.conversations.AppendOrCreate(ctx, chatID, assistantMsg, owner); err != nil {
		// The user turn is already durable; the conversation is left
		// with an unanswered user message rather than rolled back.
		s.logger.Warn("assistant append failed after user append",
			zap.String("chat_id", chatID),
			zap.String("user_message_id", userMsg.ID),
			zap.Error(err),
		)
		return &userMsg, nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}
	state = turnCommitted

	s.publishCommitted(ctx, chatID, owner, &userMsg)
	s.publishCommitted(ctx, chatID, owner, &assistantMsg)

	metrics.RecordLLMStream(resp.Model, "success",
		time.Since(streamStart).Seconds(), resp.TokensIn, resp.TokensOut)

	s.logger.Info("chat turn committed",
		zap.String("chat_id", chatID),
		zap.String("owner", owner),
		zap.String("model", resp.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
		zap.Int64("latency_ms", resp.LatencyMs),
		zap.Stringer("state", state),
	)

	return &userMsg, &assistantMsg, nil
}

func (s *ChatService) publishCommitted(ctx context.Context, chatID, owner string, msg *model.Message) {
	err := s.events.Publish(ctx, &model.TurnEvent{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		OwnerEmail: owner,
		Type:       model.TurnEventCommitted,
		Role:       msg.Role,
		MessageID:  msg.ID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to publish turn event",
			zap.String("chat_id", chatID), zap.Error(err))
	}
}

func (s *ChatService) reportFailure(ctx context.Context, chatID, owner string, state turnState, cause error) {
	evType := model.TurnEventError
	if errors.Is(cause, context.Canceled) || ctx.Err() != nil {
		evType = model.TurnEventCancel
	}

	s.logger.Info("chat turn failed",
		zap.String("chat_id", chatID),
		zap.Stringer("state", state),
		zap.String("type", string(evType)),
		zap.Error(cause),
	)

	// The request context may already be dead; publish on a short
	// detached deadline.
	pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.events.Publish(pubCtx, &model.TurnEvent{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		OwnerEmail: owner,
		Type:       evType,
		Reason:     cause.Error(),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to publish turn failure event",
			zap.String("chat_id", chatID), zap.Error(err))
	}
}
