package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragbase/internal/fault"
	"ragbase/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Run handles POST /ingest: a synchronous indexing run that blocks until the
// vector store and ledger are committed, then reports counts.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, string(fault.KindValidation), err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.service.Run(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "ingest run failed", "error", err)
		h.writeError(ctx, w, string(fault.KindOf(err)), err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": stats}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// RunAsync handles POST /ingest/async: the run is queued and executed by the
// ingest worker.
func (h *Handler) RunAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, string(fault.KindValidation), err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Enqueue(ctx, req); err != nil {
		slog.ErrorContext(ctx, "ingest enqueue failed", "error", err)
		h.writeError(ctx, w, string(fault.KindOf(err)), err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"status": "queued"}}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	switch fault.KindOf(err) {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindProvider, fault.KindIndexingPartial:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
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
