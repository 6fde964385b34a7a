package llm

import (
	"context"
	"encoding/json"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is a provider-neutral description of a structured output shape.
// Adapters translate it into their native schema representation.
type Schema struct {
	Type        string             `json:"type"` // object, array, string, number, integer, boolean
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Embedder maps text to fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel is the generation capability consumed by the research agent.
// GenerateStructured returns the raw JSON the model produced against schema;
// callers unmarshal into their own types.
type ChatModel interface {
	GenerateStructured(ctx context.Context, schema *Schema, messages []Message, tags []string) (json.RawMessage, error)
	GenerateText(ctx context.Context, messages []Message) (Message, error)
}
