package llm

import (
	"context"
	"fmt"

	"ragbase/internal/fault"
)

// EmbedderFactory builds an embedder for a provider's model name.
type EmbedderFactory func(ctx context.Context, model string) (Embedder, error)

// ChatFactory builds a chat model for a provider's model name.
type ChatFactory func(ctx context.Context, model string) (ChatModel, error)

// Registry maps provider tags ("gemini", "openai") to constructors. Selectors
// of the form "provider/model-name" are resolved through it; unknown tags fail
// with a configuration error at resolution time, which bootstrap performs
// before serving any request.
type Registry struct {
	embedders map[string]EmbedderFactory
	chats     map[string]ChatFactory
}

func NewRegistry() *Registry {
	return &Registry{
		embedders: make(map[string]EmbedderFactory),
		chats:     make(map[string]ChatFactory),
	}
}

func (r *Registry) RegisterEmbedder(provider string, f EmbedderFactory) {
	r.embedders[provider] = f
}

func (r *Registry) RegisterChat(provider string, f ChatFactory) {
	r.chats[provider] = f
}

func (r *Registry) Embedder(ctx context.Context, provider, model string) (Embedder, error) {
	f, ok := r.embedders[provider]
	if !ok {
		return nil, fault.Configuration(fmt.Sprintf("no embedding provider registered for %q", provider), nil)
	}
	return f(ctx, model)
}

func (r *Registry) Chat(ctx context.Context, provider, model string) (ChatModel, error) {
	f, ok := r.chats[provider]
	if !ok {
		return nil, fault.Configuration(fmt.Sprintf("no chat provider registered for %q", provider), nil)
	}
	return f(ctx, model)
}
