package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Esscraye/conformit/internal/middleware"
	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/internal/store"
	"github.com/Esscraye/conformit/pkg/logger"
)

// ConversationHandler handles conversation listing.
type ConversationHandler struct {
	conversations *store.ConversationStore
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations *store.ConversationStore, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        log,
	}
}

// List handles POST /conversations
//
// The owner is the bearer token's subject; the request body is ignored.
// Responds 404 when the owner has no conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserEmail(r.Context())

	summaries, err := h.conversations.ListByOwner(r.Context(), owner)
	if err != nil {
		h.logger.Error("failed to list conversations",
			zap.String("owner", owner), zap.Error(err))
		writeModelError(w, err)
		return
	}

	if len(summaries) == 0 {
		writeError(w, http.StatusNotFound, "no conversations found")
		return
	}

	writeJSON(w, http.StatusOK, model.ListConversationsResponse{
		Conversations: summaries,
	})
}
