package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/orgkb/graphchat/internal/vectorindex"
)

const maxDocumentBodySize = 10 << 20 // 10MB

// DocumentRequest ingests a document into a vector collection. Content is
// plain text; ContentBase64 carries PDF bytes when Type is "pdf".
type DocumentRequest struct {
	Title         string `json:"title"`
	Type          string `json:"type"` // "text" (default) or "pdf"
	Content       string `json:"content"`
	ContentBase64 string `json:"contentBase64"`
	Collection    string `json:"collection"`
}

func handleIngestDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBodySize)
		defer r.Body.Close()

		var req DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
			return
		}
		collection := req.Collection
		if collection == "" {
			collection = vectorindex.DefaultCollection
		}

		var (
			chunks int
			err    error
		)
		switch req.Type {
		case "pdf":
			raw, decErr := base64.StdEncoding.DecodeString(req.ContentBase64)
			if decErr != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			chunks, err = deps.Ingestor.IngestPDF(r.Context(), collection, req.Title, raw)
		case "", "text":
			if strings.TrimSpace(req.Content) == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required for text documents")
				return
			}
			chunks, err = deps.Ingestor.IngestText(r.Context(), collection, req.Title, req.Content)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown document type %q", req.Type)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "ingesting document: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"title":      req.Title,
			"collection": collection,
			"chunks":     chunks,
		})
	}
}
