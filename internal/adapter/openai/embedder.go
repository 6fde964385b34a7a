package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragbase/internal/fault"
)

// Embedder is an OpenAI-compatible embeddings client. It also works against
// self-hosted servers that speak the same wire format.
type Embedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewEmbedder(baseURL, apiKey, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, fault.Configuration("openai api key not configured", nil)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Embedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": e.model,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fault.Provider("openai embeddings request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fault.Provider(fmt.Sprintf("openai embeddings failed: %s", resp.Status), nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Provider("openai embeddings response read failed", err)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fault.Provider("openai embeddings response decode failed", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fault.Provider("openai returned wrong number of embeddings", nil)
	}

	// The API does not guarantee response order, so place by index.
	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) || len(d.Embedding) == 0 {
			return nil, fault.Provider("openai returned malformed embedding data", nil)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
