package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/middleware"
	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/internal/service"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/logger"
	"github.com/Esscraye/conformit/pkg/metrics"
)

// ChatHandler handles the streaming chat-turn endpoint.
type ChatHandler struct {
	chat          *service.ChatService
	conversations *store.ConversationStore
	logger        *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, conversations *store.ConversationStore, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:          chat,
		conversations: conversations,
		logger:        log,
	}
}

// Send handles POST /chat/{chatID}
//
// Accepts one user utterance and streams the assistant reply as SSE
// token events. An unknown chat ID starts a new conversation owned by
// the caller; an existing one must belong to the caller.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetUserEmail(ctx)
	chatID := chi.URLParam(r, "chatID")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.Get(ctx, chatID)
	switch {
	case err == nil:
		if conv.OwnerEmail != owner {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
	case errors.Is(err, model.ErrNotFound):
		// First message of a new conversation.
	default:
		writeModelError(w, err)
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	userMsg, assistantMsg, err := h.chat.Send(ctx, chatID, owner, &req,
		func(token string, index int) error {
			// A disconnected client cancels the generation; nothing is
			// persisted in that case.
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			return sendSSEEvent(w, flusher, "token", &model.TokenEvent{
				Token: token,
				Index: index,
			})
		},
	)
	if err != nil {
		h.logger.Error("chat turn failed",
			zap.String("chat_id", chatID), zap.Error(err))
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "stream_error",
			Message: err.Error(),
		})
		return
	}

	sendSSEEvent(w, flusher, "user_message", userMsg)
	sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
		Message: *assistantMsg,
	})
	sendSSEEvent(w, flusher, "done", map[string]bool{"success": true})
}
