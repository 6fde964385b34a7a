package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"ragbase/internal/llm"
	"ragbase/internal/retrieval"
)

// Retriever is the retrieval capability one research step consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Document, error)
}

var querySchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"queries": {
			Type:        "array",
			Description: "Search queries covering the research question",
			Items:       &llm.Schema{Type: "string"},
		},
	},
	Required: []string{"queries"},
}

// QueryResearcher executes one research step by reformulating the question
// into several search queries, retrieving them concurrently, and merging
// results in sub-query order. The merge is deterministic: document order
// depends only on the generated query order and each query's ranking.
type QueryResearcher struct {
	model     llm.ChatModel
	retriever Retriever
	topK      int
}

func NewQueryResearcher(model llm.ChatModel, retriever Retriever, topK int) *QueryResearcher {
	return &QueryResearcher{model: model, retriever: retriever, topK: topK}
}

func (r *QueryResearcher) Research(ctx context.Context, question string) ([]retrieval.Document, error) {
	queries, err := r.generateQueries(ctx, question)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "researching step", "question", question, "queries", len(queries))

	results := make([][]retrieval.Document, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			results[i], errs[i] = r.retriever.Retrieve(ctx, query, r.topK)
		}(i, query)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", queries[i], err)
		}
	}

	var merged []retrieval.Document
	for _, docs := range results {
		merged = append(merged, docs...)
	}
	return merged, nil
}

// generateQueries asks the model for reformulations. The original question
// always works as a fallback query when the model returns an empty list.
func (r *QueryResearcher) generateQueries(ctx context.Context, question string) ([]string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: querySystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}

	raw, err := r.model.GenerateStructured(ctx, querySchema, messages, []string{"nostream"})
	if err != nil {
		return nil, fmt.Errorf("query generation: %w", err)
	}

	var out struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("query generation: %w", err)
	}

	if len(out.Queries) == 0 {
		return []string{question}, nil
	}
	return out.Queries, nil
}
