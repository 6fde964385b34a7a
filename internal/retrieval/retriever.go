package retrieval

import (
	"context"
	"time"
)

// Document is one retrieved passage, ordered by descending similarity score.
// The orchestrator's response step consumes it read-only.
type Document struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Title  string  `json:"title"`
	Score  float32 `json:"score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Search(ctx context.Context, queryVector []float32, topK int) ([]Document, error)
}

// Retriever wraps the vector store with query-time configuration. The store's
// attribute schema is validated at bootstrap, so a query never fails on a
// missing source/title attribute here.
type Retriever struct {
	embedder Embedder
	store    VectorStore
	topK     int
	logger   *QueryLogger
}

const DefaultTopK = 10

func NewRetriever(embedder Embedder, store VectorStore, topK int, logger *QueryLogger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, logger: logger}
}

// Retrieve embeds the query and returns the topK most similar documents.
// topK <= 0 uses the retriever's default.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = r.topK
	}
	start := time.Now()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(docs),
			Duration:   time.Since(start),
		})
	}
	return docs, nil
}
