package app

import (
	"context"

	"ragbase/internal/adapter/gemini"
	"ragbase/internal/adapter/openai"
	"ragbase/internal/config"
	"ragbase/internal/llm"
)

// newRegistry wires the provider constructors the model selectors can name.
// config.SplitModelSelector rejects anything not registered here.
func newRegistry(cfg *config.Config) *llm.Registry {
	registry := llm.NewRegistry()

	registry.RegisterEmbedder("gemini", func(ctx context.Context, model string) (llm.Embedder, error) {
		return gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, model)
	})
	registry.RegisterChat("gemini", func(ctx context.Context, model string) (llm.ChatModel, error) {
		return gemini.NewChat(ctx, cfg.GeminiAPIKey, model)
	})

	registry.RegisterEmbedder("openai", func(ctx context.Context, model string) (llm.Embedder, error) {
		return openai.NewEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model)
	})

	return registry
}

type resolvedModels struct {
	embedder      llm.Embedder
	queryModel    llm.ChatModel
	responseModel llm.ChatModel
}

// resolveModels turns the configured selectors into live clients. Selector
// syntax was validated at config load; resolution still fails for providers
// missing a capability, like chat on openai.
func resolveModels(ctx context.Context, cfg *config.Config, registry *llm.Registry) (*resolvedModels, error) {
	provider, model, err := config.SplitModelSelector(cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	embedder, err := registry.Embedder(ctx, provider, model)
	if err != nil {
		return nil, err
	}

	provider, model, err = config.SplitModelSelector(cfg.QueryModel)
	if err != nil {
		return nil, err
	}
	queryModel, err := registry.Chat(ctx, provider, model)
	if err != nil {
		return nil, err
	}

	provider, model, err = config.SplitModelSelector(cfg.ResponseModel)
	if err != nil {
		return nil, err
	}
	responseModel, err := registry.Chat(ctx, provider, model)
	if err != nil {
		return nil, err
	}

	return &resolvedModels{
		embedder:      embedder,
		queryModel:    queryModel,
		responseModel: responseModel,
	}, nil
}
