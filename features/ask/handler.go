package ask

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ragbase/internal/agent"
	"ragbase/internal/fault"
	"ragbase/internal/llm"
	"ragbase/internal/middleware"
	"ragbase/internal/retrieval"
)

// Orchestrator runs one question through plan, research and respond.
type Orchestrator interface {
	Run(ctx context.Context, messages []llm.Message) (*agent.State, error)
}

type Handler struct {
	orchestrator Orchestrator
}

func NewHandler(orchestrator Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

type Request struct {
	Messages []MessagePayload `json:"messages"`
}

type MessagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Response struct {
	Answer     string               `json:"answer"`
	Documents  []retrieval.Document `json:"documents"`
	StepsTaken []string             `json:"steps_taken"`
}

// Ask handles POST /ask. The conversation must end with a user message; the
// rest of it carries context for planning.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, string(fault.KindValidation), err.Error(), http.StatusBadRequest)
		return
	}

	messages, err := validateMessages(req.Messages)
	if err != nil {
		h.writeError(ctx, w, string(fault.KindValidation), err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.orchestrator.Run(ctx, messages)
	if err != nil {
		phase := "unknown"
		if state != nil {
			phase = state.Phase.String()
		}
		slog.ErrorContext(ctx, "ask run failed", "error", err, "phase", phase)

		var planErr *agent.PlanGenerationError
		if errors.As(err, &planErr) {
			h.writeError(ctx, w, string(fault.KindStructuredOutput), "could not plan the research for this question", http.StatusBadGateway)
			return
		}
		h.writeError(ctx, w, string(fault.KindOf(err)), "question could not be answered", http.StatusInternalServerError)
		return
	}

	resp := Response{
		Answer:     state.Answer,
		Documents:  state.Documents,
		StepsTaken: state.StepsTaken,
	}
	if resp.Documents == nil {
		resp.Documents = []retrieval.Document{}
	}
	if resp.StepsTaken == nil {
		resp.StepsTaken = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func validateMessages(payloads []MessagePayload) ([]llm.Message, error) {
	if len(payloads) == 0 {
		return nil, errors.New("messages are required")
	}

	messages := make([]llm.Message, len(payloads))
	for i, p := range payloads {
		switch p.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		default:
			return nil, errors.New("unknown message role: " + p.Role)
		}
		if p.Content == "" {
			return nil, errors.New("message content cannot be empty")
		}
		messages[i] = llm.Message{Role: p.Role, Content: p.Content}
	}

	if messages[len(messages)-1].Role != llm.RoleUser {
		return nil, errors.New("conversation must end with a user message")
	}
	return messages, nil
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
