package llm

import "context"

// Provider abstracts an embedding/completion model backend (Ollama or any
// OpenAI-compatible server). Consumers such as the RAG responder, the query
// orchestrator, and the agent planner use this interface instead of depending
// on a concrete client. Every method may fail (network, timeout, model
// errors) and callers must treat it as fallible.
type Provider interface {
	// Chat sends messages to the model and returns the assistant's response.
	// When jsonSchema is non-nil, structured JSON output is requested.
	Chat(ctx context.Context, messages []Message, jsonSchema *Schema) (string, error)

	// Generate is the single-prompt convenience variant of Chat. The optional
	// system string is sent as a system message when non-empty.
	Generate(ctx context.Context, prompt, system string) (string, error)

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema describes the expected JSON output structure for structured chat
// responses.
type Schema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaProperty describes a single field within a Schema. Properties is set
// for nested objects, Items for arrays.
type SchemaProperty struct {
	Type        string                    `json:"type"`
	Description string                    `json:"description,omitempty"`
	Items       *SchemaProperty           `json:"items,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
}
