// Package challenge implements the challenge-response gate of the signup
// protocol: a server-authoritative catalog of mechanisms, per-mechanism
// verifiers behind a uniform future-like result, and first-failure-wins
// aggregation.
package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dropwire/dropwire/core"
)

// Claim is the input a verifier judges: the validated identity payload and
// the mechanism-specific response the client supplied under `because`.
type Claim struct {
	Payload  *core.SelfIdentPayload
	Response json.RawMessage
}

// Verifier judges one challenge kind. Verify never returns an error; every
// failure mode is an Outcome, and unexpected trouble while settling maps to
// server-problem-try-again-later in the authenticator.
type Verifier interface {
	Kind() core.ChallengeKind
	Verify(ctx context.Context, claim *Claim) *Result
}

// Authenticator evaluates signup requests against the challenge catalog.
// The catalog is fixed at construction: the set used to validate responses
// is always the set that was offered.
type Authenticator struct {
	catalog   core.Catalog
	verifiers map[core.ChallengeKind]Verifier
	log       *slog.Logger
}

// NewAuthenticator wires verifiers to the catalog. Every catalog kind other
// than "none" must have a verifier; a kind without one would silently admit
// everyone.
func NewAuthenticator(catalog core.Catalog, log *slog.Logger, verifiers ...Verifier) (*Authenticator, error) {
	if log == nil {
		log = slog.Default()
	}
	byKind := make(map[core.ChallengeKind]Verifier, len(verifiers))
	for _, v := range verifiers {
		byKind[v.Kind()] = v
	}
	for _, kind := range catalog.Kinds() {
		if kind == core.ChallengeNone {
			continue
		}
		if _, ok := byKind[kind]; !ok {
			return nil, fmt.Errorf("challenge catalog offers %q but no verifier is registered", kind)
		}
	}
	return &Authenticator{catalog: catalog, verifiers: byKind, log: log}, nil
}

// Evaluate runs the gate. "none" in the catalog passes everything. Otherwise
// every mechanism the client responded to that the catalog offers is
// verified; unknown mechanisms in `because` are ignored for forward
// compatibility. Synchronous failures short-circuit pending work; otherwise
// pending results are awaited in catalog order and the first failure wins.
// Trouble while waiting never reaches the peer as anything more specific
// than try-again-later.
func (a *Authenticator) Evaluate(ctx context.Context, payload *core.SelfIdentPayload, because map[string]json.RawMessage) core.Outcome {
	if a.catalog.Contains(core.ChallengeNone) {
		return core.OutcomePass
	}

	var results []*Result
	for _, kind := range a.catalog.Kinds() {
		response, ok := because[string(kind)]
		if !ok {
			continue
		}
		claim := &Claim{Payload: payload, Response: response}
		results = append(results, a.verifiers[kind].Verify(ctx, claim))
	}

	// Any already-settled failure is issued immediately; in-flight
	// verifiers are abandoned and their results discarded.
	for _, r := range results {
		if outcome, ok := r.Ready(); ok && outcome.Failed() {
			return outcome
		}
	}

	for _, r := range results {
		outcome, err := r.Wait(ctx)
		if err != nil {
			a.log.Warn("challenge verifier did not settle", "error", err)
			return core.OutcomeTryAgainLater
		}
		if outcome.Failed() {
			return outcome
		}
	}
	return core.OutcomePass
}
