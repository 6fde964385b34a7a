package agent

import (
	"ragbase/internal/llm"
	"ragbase/internal/retrieval"
)

// Phase is the orchestrator's explicit state. Transitions only move forward,
// except Researching which loops until its work queue drains.
type Phase int

const (
	PhasePlanning Phase = iota
	PhaseResearching
	PhaseResponding
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseResearching:
		return "researching"
	case PhaseResponding:
		return "responding"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// State is owned by exactly one orchestrator invocation and never shared
// between concurrent queries.
type State struct {
	Phase     Phase
	Messages  []llm.Message
	Steps     []string
	Documents []retrieval.Document
	Query     string
	Answer    string

	// StepsTaken preserves the executed plan for callers; Steps itself is
	// consumed by the research loop.
	StepsTaken []string
}
