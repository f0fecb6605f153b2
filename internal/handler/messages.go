package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/middleware"
	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/logger"
)

// MessageHandler handles message listing and truncation.
type MessageHandler struct {
	conversations *store.ConversationStore
	logger        *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(conversations *store.ConversationStore, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		logger:        log,
	}
}

// requireOwnership loads the conversation and checks the caller owns it.
// Ownership failures are reported as 404, not 403, so chat IDs cannot be
// probed.
func (h *MessageHandler) requireOwnership(w http.ResponseWriter, r *http.Request, chatID string) bool {
	conv, err := h.conversations.Get(r.Context(), chatID)
	if err != nil {
		writeModelError(w, err)
		return false
	}
	if conv.OwnerEmail != middleware.GetUserEmail(r.Context()) {
		writeError(w, http.StatusNotFound, "not found")
		return false
	}
	return true
}

// List handles GET /messages/{chatID}
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.requireOwnership(w, r, chatID) {
		return
	}

	messages, err := h.conversations.GetMessages(r.Context(), chatID)
	if err != nil {
		h.logger.Error("failed to get messages",
			zap.String("chat_id", chatID), zap.Error(err))
		writeModelError(w, err)
		return
	}

	if len(messages) == 0 {
		writeError(w, http.StatusNotFound, "no messages found")
		return
	}

	writeJSON(w, http.StatusOK, model.ListMessagesResponse{Messages: messages})
}

// Truncate handles DELETE /messages/{chatID}/{messageID}
//
// Discards the message and everything after it, implementing "regenerate
// from this point".
func (h *MessageHandler) Truncate(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	messageID := chi.URLParam(r, "messageID")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.requireOwnership(w, r, chatID) {
		return
	}

	if err := h.conversations.TruncateAfter(r.Context(), chatID, messageID); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			h.logger.Error("failed to truncate conversation",
				zap.String("chat_id", chatID), zap.Error(err))
		}
		writeModelError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
