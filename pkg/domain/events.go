package domain

import (
	"context"
	"time"
)

// EventType defines the category of the lifecycle event.
type EventType string

const (
	EventPhaseStart   EventType = "phase_start"
	EventPhaseSkip    EventType = "phase_skip"
	EventPhaseDone    EventType = "phase_done"
	EventSolverStart  EventType = "solver_start"
	EventSolverReturn EventType = "solver_return"
	EventPipelineHalt EventType = "pipeline_halt"
)

// PhaseEvent describes the start, skip or completion of a pipeline phase.
type PhaseEvent struct {
	Type      EventType
	RunID     string
	Phase     Phase
	CaseDir   string
	Timestamp time.Time
	// Reason carries the skip or halt explanation, e.g. which artifact
	// already existed or which precondition was unmet.
	Reason string
}

// SolverEvent describes an external solver invocation.
type SolverEvent struct {
	Type      EventType
	RunID     string
	CaseDir   string
	NumProcs  int
	Duration  time.Duration
	Err       error
	Timestamp time.Time
}

// LifecycleHooks defines callbacks for pipeline observability. Nil hooks are
// skipped. Hooks run synchronously on the orchestration goroutine and must
// not block.
type LifecycleHooks struct {
	OnPhaseStart   func(context.Context, *PhaseEvent)
	OnPhaseSkip    func(context.Context, *PhaseEvent)
	OnPhaseDone    func(context.Context, *PhaseEvent)
	OnSolverStart  func(context.Context, *SolverEvent)
	OnSolverReturn func(context.Context, *SolverEvent)
	OnPipelineHalt func(context.Context, *PhaseEvent)
}
