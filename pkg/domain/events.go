package domain

import (
	"context"
	"time"
)

// EventBase contains fields common to all run events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Experiment string    `json:"experiment"`
}

// RunStartEvent fires once per run, after subjects have been fetched and merged.
type RunStartEvent struct {
	EventBase
	Fetched int `json:"fetched"`
}

// AssignEvent fires when a subject is mapped to a treatment group.
type AssignEvent struct {
	EventBase
	SubjectID string `json:"subject_id"`
	Group     string `json:"group"`
}

// AdvanceEvent fires when a subject moves one stage forward.
type AdvanceEvent struct {
	EventBase
	SubjectID string `json:"subject_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// CompleteEvent fires when a subject passes the last stage and leaves the pipeline.
type CompleteEvent struct {
	EventBase
	SubjectID string `json:"subject_id"`
}

// HoldEvent fires when a subject is held at its current state because a
// predicate or an assignment could not be evaluated.
type HoldEvent struct {
	EventBase
	SubjectID string `json:"subject_id"`
	Stage     string `json:"stage"`
	Err       error  `json:"-"`
}

// RunEndEvent fires once per run with the final report.
type RunEndEvent struct {
	EventBase
	Report *Report `json:"report"`
}

// RunHooks defines callbacks for engine observability. All fields are
// optional; nil callbacks are skipped.
type RunHooks struct {
	OnRunStart func(context.Context, *RunStartEvent)
	OnAssign   func(context.Context, *AssignEvent)
	OnAdvance  func(context.Context, *AdvanceEvent)
	OnComplete func(context.Context, *CompleteEvent)
	OnHold     func(context.Context, *HoldEvent)
	OnRunEnd   func(context.Context, *RunEndEvent)
}

// JoinHooks merges hook sets into one. Every non-nil callback fires, in
// argument order, so logging and metrics hooks can run side by side.
func JoinHooks(hooks ...RunHooks) RunHooks {
	var out RunHooks
	for _, h := range hooks {
		out.OnRunStart = joinHook(out.OnRunStart, h.OnRunStart)
		out.OnAssign = joinHook(out.OnAssign, h.OnAssign)
		out.OnAdvance = joinHook(out.OnAdvance, h.OnAdvance)
		out.OnComplete = joinHook(out.OnComplete, h.OnComplete)
		out.OnHold = joinHook(out.OnHold, h.OnHold)
		out.OnRunEnd = joinHook(out.OnRunEnd, h.OnRunEnd)
	}
	return out
}

func joinHook[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
