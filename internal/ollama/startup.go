package ollama

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/orgkb/graphchat/internal/llm"
)

const warmupTimeout = 30 * time.Second

// EnsureReady verifies the server is reachable and that the configured chat
// and embedding models are present, pulling any that are missing with
// progress written to w. It then warms the chat model with a trivial request
// so the first real query doesn't pay the cold-load penalty; warm-up failure
// is reported but not fatal.
func EnsureReady(ctx context.Context, c *Client, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	for _, model := range []string{c.chatModel, c.embedModel} {
		if err := ensureModel(ctx, c, model, w); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "model %s: warming up...\n", c.chatModel)
	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	if _, err := c.Chat(warmCtx, []llm.Message{{Role: "user", Content: "ping"}}, nil); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", c.chatModel, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", c.chatModel)
	}
	return nil
}

func ensureModel(ctx context.Context, c *Client, model string, w io.Writer) error {
	if c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return nil
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := c.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, float64(p.Completed)/float64(p.Total)*100)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}
