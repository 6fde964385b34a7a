package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragbase/internal/middleware"
)

type LedgerRepo interface {
	Count(ctx context.Context, namespace string) (int, error)
}

type VectorStore interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	ledgerRepo  LedgerRepo
	vectorStore VectorStore
	namespace   string
}

func NewHandler(ledgerRepo LedgerRepo, vectorStore VectorStore, namespace string) *Handler {
	return &Handler{ledgerRepo: ledgerRepo, vectorStore: vectorStore, namespace: namespace}
}

type StatsResponse struct {
	Chunks        int `json:"chunks"`
	LedgerEntries int `json:"ledger_entries"`
}

// GetStats reports the chunk count in the vector store alongside the ledger
// entry count. The two track each other; a persistent gap means a run died
// between a store write and its ledger commit.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chunks, err := h.vectorStore.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chunks", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count chunks", http.StatusInternalServerError)
		return
	}

	entries, err := h.ledgerRepo.Count(ctx, h.namespace)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count ledger entries", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count ledger entries", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Chunks:        chunks,
		LedgerEntries: entries,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
