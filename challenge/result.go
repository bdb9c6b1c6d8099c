package challenge

import (
	"context"

	"github.com/dropwire/dropwire/core"
)

// Result is the uniform future every verifier returns, whether it resolved
// synchronously or has work in flight. The aggregation logic in the
// authenticator only ever deals with Results, so first-failure-wins
// ordering is implemented once.
type Result struct {
	ch       <-chan core.Outcome
	outcome  core.Outcome
	resolved bool
}

// Resolved returns an already-settled result.
func Resolved(outcome core.Outcome) *Result {
	return &Result{outcome: outcome, resolved: true}
}

// Defer runs fn on its own goroutine and returns a pending result. fn must
// honor the context it captured; its value is discarded if nobody waits.
func Defer(fn func() core.Outcome) *Result {
	ch := make(chan core.Outcome, 1)
	go func() {
		ch <- fn()
	}()
	return &Result{ch: ch}
}

// Ready reports the outcome if the result has already settled, without
// blocking.
func (r *Result) Ready() (core.Outcome, bool) {
	if r.resolved {
		return r.outcome, true
	}
	select {
	case o := <-r.ch:
		r.outcome = o
		r.resolved = true
		return o, true
	default:
		return core.OutcomePass, false
	}
}

// Wait blocks until the result settles or the context is cancelled.
func (r *Result) Wait(ctx context.Context) (core.Outcome, error) {
	if r.resolved {
		return r.outcome, nil
	}
	select {
	case o := <-r.ch:
		r.outcome = o
		r.resolved = true
		return o, nil
	case <-ctx.Done():
		return core.OutcomePass, ctx.Err()
	}
}
