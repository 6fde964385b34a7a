package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ragbase/internal/llm"
	"ragbase/internal/retrieval"
)

// PlanGenerationError marks a run whose planning step produced unusable
// output. The orchestrator does not retry; it is a terminal run failure.
type PlanGenerationError struct {
	Err error
}

func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("plan generation failed: %v", e.Err)
}

func (e *PlanGenerationError) Unwrap() error {
	return e.Err
}

// Researcher executes one research step: question in, documents out.
type Researcher interface {
	Research(ctx context.Context, question string) ([]retrieval.Document, error)
}

// DefaultResponseTopK bounds how many accumulated documents the response
// step formats into context. Truncation, not re-ranking: accumulated order
// decides what the model sees.
const DefaultResponseTopK = 20

var planSchema = &llm.Schema{
	Type: "object",
	Properties: map[string]*llm.Schema{
		"steps": {
			Type:        "array",
			Description: "Ordered research steps answering the user's question",
			Items:       &llm.Schema{Type: "string"},
		},
	},
	Required: []string{"steps"},
}

// Orchestrator drives one query through planning, researching and responding.
// It holds no mutable state of its own; everything lives in the per-run State.
type Orchestrator struct {
	queryModel    llm.ChatModel
	responseModel llm.ChatModel
	researcher    Researcher
	topK          int
}

func NewOrchestrator(queryModel, responseModel llm.ChatModel, researcher Researcher, topK int) *Orchestrator {
	if topK <= 0 {
		topK = DefaultResponseTopK
	}
	return &Orchestrator{
		queryModel:    queryModel,
		responseModel: responseModel,
		researcher:    researcher,
		topK:          topK,
	}
}

// Run executes the state machine to completion. The Steps queue is strictly
// decreasing and bounded by the plan size, so termination holds by
// construction. Cancellation is checked between transitions; in-flight
// external calls observe ctx directly.
func (o *Orchestrator) Run(ctx context.Context, messages []llm.Message) (*State, error) {
	state := &State{
		Phase:    PhasePlanning,
		Messages: messages,
	}

	for state.Phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		var err error
		switch state.Phase {
		case PhasePlanning:
			err = o.plan(ctx, state)
		case PhaseResearching:
			err = o.research(ctx, state)
		case PhaseResponding:
			err = o.respond(ctx, state)
		}
		if err != nil {
			return state, err
		}
	}

	return state, nil
}

// plan asks the query model for an ordered list of research steps. A new plan
// invalidates previously accumulated documents, so they are cleared.
func (o *Orchestrator) plan(ctx context.Context, state *State) error {
	messages := append([]llm.Message{{Role: llm.RoleSystem, Content: planSystemPrompt}}, state.Messages...)

	raw, err := o.queryModel.GenerateStructured(ctx, planSchema, messages, []string{"nostream"})
	if err != nil {
		return &PlanGenerationError{Err: err}
	}

	var plan struct {
		Steps []string `json:"steps"`
	}
	if err := json.Unmarshal(raw, &plan); err != nil {
		return &PlanGenerationError{Err: err}
	}

	state.Steps = plan.Steps
	state.Documents = nil
	state.Query = latestUserMessage(state.Messages)
	state.Phase = PhaseResearching

	slog.InfoContext(ctx, "research plan created", "steps", len(plan.Steps))
	return nil
}

// research pops the first step of the plan and appends its documents. An
// empty queue transitions to responding; this is checkFinished from the
// transition table, folded into the loop.
func (o *Orchestrator) research(ctx context.Context, state *State) error {
	if len(state.Steps) == 0 {
		state.Phase = PhaseResponding
		return nil
	}

	step := state.Steps[0]
	state.Steps = state.Steps[1:]
	state.StepsTaken = append(state.StepsTaken, step)

	docs, err := o.researcher.Research(ctx, step)
	if err != nil {
		return fmt.Errorf("research step %q: %w", step, err)
	}

	state.Documents = append(state.Documents, docs...)
	return nil
}

// respond formats the first topK accumulated documents into a context block
// and asks the response model for the final answer.
func (o *Orchestrator) respond(ctx context.Context, state *State) error {
	docs := state.Documents
	if len(docs) > o.topK {
		docs = docs[:o.topK]
	}

	messages := append(
		[]llm.Message{{Role: llm.RoleSystem, Content: fmt.Sprintf(responseSystemPrompt, FormatDocuments(docs))}},
		state.Messages...,
	)

	response, err := o.responseModel.GenerateText(ctx, messages)
	if err != nil {
		return fmt.Errorf("response generation: %w", err)
	}

	state.Messages = append(state.Messages, response)
	state.Answer = response.Content
	state.Phase = PhaseDone
	return nil
}

func latestUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
