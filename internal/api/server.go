// Package api exposes the chatbot over HTTP (chi router) and MCP. The chat
// endpoint returns HTTP 200 with diagnostic text on pipeline failures; only
// malformed requests, auth, and conversation ownership surface as 4xx.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/orgkb/graphchat/internal/agent"
	"github.com/orgkb/graphchat/internal/orchestrator"
	"github.com/orgkb/graphchat/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// anonymousUser is the caller identity when X-User-ID is absent.
const anonymousUser = "anonymous"

// QueryProcessor is the chat pipeline entry point.
type QueryProcessor interface {
	Process(ctx context.Context, message, conversationID, userID string) orchestrator.Response
}

// AgentRunner plans and executes multi-step queries.
type AgentRunner interface {
	Run(ctx context.Context, query string) (*agent.Execution, error)
}

// ConversationStore is the conversation read/delete surface.
type ConversationStore interface {
	ListByUser(userID string) ([]storage.Conversation, error)
	Get(id, userID string) (storage.Conversation, error)
	Recent(id string, max int) ([]storage.Message, error)
	Delete(id, userID string) error
}

// DocumentIngestor accepts uploaded documents into the vector index.
type DocumentIngestor interface {
	IngestText(ctx context.Context, collection, title, text string) (int, error)
	IngestPDF(ctx context.Context, collection, title string, raw []byte) (int, error)
}

// Deps holds the wired components for the HTTP surface.
type Deps struct {
	Orchestrator  QueryProcessor
	Agent         AgentRunner
	Conversations ConversationStore
	Ingestor      DocumentIngestor
	Token         string
}

// NewHandler builds the full HTTP router. /health is open; everything under
// /api requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/chat", handleChat(deps))
		r.Post("/agent", handleAgent(deps))
		r.Get("/conversations", handleListConversations(deps))
		r.Get("/conversations/{id}", handleGetConversation(deps))
		r.Delete("/conversations/{id}", handleDeleteConversation(deps))
		r.Post("/documents", handleIngestDocument(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// userID extracts the caller identity from the X-User-ID header.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return anonymousUser
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
