// Package task provides a generic sequential step runner with two failure
// disciplines: soft-failure (a failing step resolves the whole task to a
// sentinel "not valid" result) and early-return (a step terminates the task
// with a value, skipping the rest). The engine is a reducer over a tagged
// per-step outcome, so both disciplines are explicit rather than relying on
// panic/recover semantics.
package task

import (
	"context"
	"log/slog"
)

type outcomeKind int

const (
	kindContinue outcomeKind = iota
	kindReturn
	kindFail
)

// Outcome tags the result of a single step.
type Outcome struct {
	kind  outcomeKind
	value any
	err   error
}

// Continue records the value as the task's current result and proceeds to
// the next step.
func Continue(value any) Outcome {
	return Outcome{kind: kindContinue, value: value}
}

// Return resolves the task immediately with the given value; remaining
// steps never run.
func Return(value any) Outcome {
	return Outcome{kind: kindReturn, value: value}
}

// Fail reports a step failure. Under Run it is fatal and surfaces to the
// caller; under RunSoft it resolves the task as not-valid.
func Fail(err error) Outcome {
	return Outcome{kind: kindFail, err: err}
}

// Step is one named unit of sequential work. Steps usually close over a
// shared pipeline struct, which serves as the growable context that each
// step's result accumulates into.
type Step struct {
	Name string
	Run  func(ctx context.Context) Outcome
}

// Task is an ordered sequence of named steps. A Task instance belongs to
// the connection that spawned it; instances are independent and share no
// state with each other.
type Task struct {
	name  string
	log   *slog.Logger
	steps []Step
}

// New builds a task. The logger comes from the server context; nil falls
// back to the process default.
func New(name string, log *slog.Logger, steps ...Step) *Task {
	if log == nil {
		log = slog.Default()
	}
	return &Task{name: name, log: log, steps: steps}
}

// Run executes the steps strictly in declaration order and returns the last
// recorded value. A step boundary is the only suspension point: the context
// is checked before each step, and a cancelled context stops the task
// without running further steps. Fail is fatal here and propagates.
func (t *Task) Run(ctx context.Context) (any, error) {
	value, _, err := t.run(ctx)
	return value, err
}

// RunSoft executes the steps like Run, but absorbs the first failure into a
// (nil, false) resolution instead of an error. Used where "not valid" is an
// expected branch for the parent, not an exception.
func (t *Task) RunSoft(ctx context.Context) (any, bool) {
	value, failed, err := t.run(ctx)
	if err != nil || failed {
		return nil, false
	}
	return value, true
}

func (t *Task) run(ctx context.Context) (value any, failed bool, err error) {
	for _, step := range t.steps {
		if err := ctx.Err(); err != nil {
			t.log.Debug("task cancelled", "task", t.name, "step", step.Name)
			return nil, false, err
		}
		t.log.Debug("task step", "task", t.name, "step", step.Name)
		out := step.Run(ctx)
		switch out.kind {
		case kindContinue:
			value = out.value
		case kindReturn:
			return out.value, false, nil
		case kindFail:
			t.log.Debug("task step failed", "task", t.name, "step", step.Name, "error", out.err)
			return nil, true, out.err
		}
	}
	return value, false, nil
}
