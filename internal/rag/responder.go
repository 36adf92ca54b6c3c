// Package rag grounds generated answers in retrieved vector context. The
// responder degrades in layers: empty retrieval short-circuits to a fixed
// not-found message (no model call, no hallucination on empty context), and
// a failed generation falls back to a plain listing of the raw search
// results — once retrieval succeeded, the request never fails.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/orgkb/graphchat/internal/llm"
	"github.com/orgkb/graphchat/internal/vectorindex"
)

const generateTimeout = 30 * time.Second

// NotFoundMessage is returned when retrieval yields no context.
const NotFoundMessage = "Không tìm thấy thông tin phù hợp trong cơ sở tri thức. Bạn có thể thử diễn đạt lại câu hỏi."

// Searcher abstracts vector search for the responder.
type Searcher interface {
	Search(ctx context.Context, collection, text string, topK int) ([]vectorindex.Result, error)
}

// Generator abstracts text generation.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Responder answers queries using retrieval-augmented generation.
type Responder struct {
	index  Searcher
	model  Generator
	logger *slog.Logger
}

// New creates a Responder.
func New(index Searcher, model Generator, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{index: index, model: model, logger: logger}
}

// Answer retrieves topK context snippets from the named collection and asks
// the model to answer from them. history, when non-empty, is included so the
// model can resolve references to earlier turns. Returns an error only when
// retrieval itself fails; the orchestrator then tries its next stage.
func (r *Responder) Answer(ctx context.Context, query, collection string, topK int, history []llm.Message) (string, error) {
	results, err := r.index.Search(ctx, collection, query, topK)
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}
	if len(results) == 0 {
		return NotFoundMessage, nil
	}

	prompt := buildPrompt(query, results, history)

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	answer, err := r.model.Generate(genCtx, prompt, systemInstructions)
	if err != nil {
		r.logger.Warn("generation failed, returning raw search results", "error", err)
		return formatResults(results), nil
	}
	return answer, nil
}

const systemInstructions = `Bạn là trợ lý tri thức nội bộ của công ty. Chỉ trả lời dựa trên phần NGỮ CẢNH được cung cấp. Nếu ngữ cảnh không liên quan đến câu hỏi, hãy nói rõ là không tìm thấy thông tin. Trả lời ngắn gọn, bằng tiếng Việt.`

func buildPrompt(query string, results []vectorindex.Result, history []llm.Message) string {
	var sb strings.Builder

	sb.WriteString("NGỮ CẢNH:\n")
	for i, res := range results {
		fmt.Fprintf(&sb, "%d. (độ phù hợp %.0f%%) %s\n", i+1, res.Score*100, res.Content)
		if name := res.Metadata["name"]; name != "" {
			fmt.Fprintf(&sb, "   Tên: %s\n", name)
		}
		if typ := res.Metadata["type"]; typ != "" {
			fmt.Fprintf(&sb, "   Loại: %s\n", typ)
		}
	}

	if len(history) > 0 {
		sb.WriteString("\nHỘI THOẠI TRƯỚC ĐÓ:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "[%s]: %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&sb, "\nCÂU HỎI: %s\n", query)
	return sb.String()
}

// formatResults renders the raw hits as a numbered list — the degraded
// answer when the model is unavailable.
func formatResults(results []vectorindex.Result) string {
	var sb strings.Builder
	sb.WriteString("Thông tin tìm được:\n")
	for i, res := range results {
		fmt.Fprintf(&sb, "%d. %s (độ phù hợp %.0f%%)\n", i+1, res.Content, res.Score*100)
	}
	return sb.String()
}
