// Package openai adapts an OpenAI-compatible API to the llm.Provider
// interface. It is the cloud alternative to the default local Ollama backend,
// selected via the llm.backend config key.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/orgkb/graphchat/internal/llm"
)

// Compile-time check that Client implements llm.Provider.
var _ llm.Provider = (*Client)(nil)

// Client wraps the go-openai SDK with fixed chat and embedding models.
type Client struct {
	api        *goopenai.Client
	chatModel  string
	embedModel string
}

// New creates a Client. baseURL may be empty for the default OpenAI endpoint,
// or point at any OpenAI-compatible server.
func New(apiKey, baseURL, chatModel, embedModel string) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:        goopenai.NewClientWithConfig(cfg),
		chatModel:  chatModel,
		embedModel: embedModel,
	}
}

// Chat sends messages to the chat model and returns the assistant's response.
// When jsonSchema is non-nil, JSON-object response format is requested; the
// schema itself is appended to the system message since the completions API
// has no direct schema parameter.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, jsonSchema *llm.Schema) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: make([]goopenai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if jsonSchema != nil {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate sends a single prompt to the chat model. The optional system
// string is prepended as a system message when non-empty.
func (c *Client) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []llm.Message
	if system != "" {
		messages = append(messages, llm.Message{Role: "system", Content: system})
	}
	messages = append(messages, llm.Message{Role: "user", Content: prompt})
	return c.Chat(ctx, messages, nil)
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.embedModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response data")
	}
	return resp.Data[0].Embedding, nil
}
