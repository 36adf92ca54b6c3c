package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgkb/graphchat/internal/storage"
)

func handleListConversations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversations, err := deps.Conversations.ListByUser(userID(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing conversations: %v", err)
			return
		}
		if conversations == nil {
			conversations = []storage.Conversation{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
	}
}

func handleGetConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		conversation, err := deps.Conversations.Get(id, userID(r))
		if err != nil {
			conversationError(w, err)
			return
		}
		messages, err := deps.Conversations.Recent(id, 0)
		if err != nil {
			conversationError(w, err)
			return
		}
		if messages == nil {
			messages = []storage.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"conversation": conversation,
			"messages":     messages,
		})
	}
}

func handleDeleteConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := deps.Conversations.Delete(id, userID(r)); err != nil {
			conversationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	}
}

// conversationError maps store errors to status codes. Ownership violations
// and missing conversations are the only client-facing failures.
func conversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "conversation not found")
	case errors.Is(err, storage.ErrForbidden):
		httpError(w, http.StatusForbidden, "forbidden", "conversation belongs to another user")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "conversation lookup failed: %v", err)
	}
}
