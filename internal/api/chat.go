package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/orgkb/graphchat/internal/agent"
)

// ChatRequest is the inbound chat payload.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// AgentRequest is the inbound agent payload.
type AgentRequest struct {
	Message string `json:"message"`
}

// AgentResponse is the execution record plus the run outcome, so clients can
// tell a completed run from one cut short by the execution ceiling.
type AgentResponse struct {
	*agent.Execution
	TimedOut bool `json:"timedOut,omitempty"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		resp := deps.Orchestrator.Process(r.Context(), req.Message, req.ConversationID, userID(r))
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAgent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		// A timed-out run still carries partial steps and a fallback answer,
		// so the execution record is returned either way, flagged for the
		// client.
		exec, err := deps.Agent.Run(r.Context(), req.Message)
		if exec == nil {
			httpError(w, http.StatusInternalServerError, "api_error", "agent run failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, AgentResponse{
			Execution: exec,
			TimedOut:  errors.Is(err, agent.ErrExecutionTimeout),
		})
	}
}
