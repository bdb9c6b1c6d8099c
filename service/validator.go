package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
	"github.com/dropwire/dropwire/task"
)

// BundleValidator checks the cryptographic chain of trust in a signup
// bundle: the self-ident must be self-consistent and name this server, and
// every client authorization must trace back to the self-ident's root key,
// with the connecting peer among them. It runs as a soft-failure task:
// "not valid" is a branch for the caller, never an error.
type BundleValidator struct {
	ident           ports.IdentityVerifier
	serverSelfIdent string
	log             *slog.Logger
}

// NewBundleValidator builds a validator bound to this server's published
// self-ident blob.
func NewBundleValidator(ident ports.IdentityVerifier, serverSelfIdent string, log *slog.Logger) *BundleValidator {
	if log == nil {
		log = slog.Default()
	}
	return &BundleValidator{ident: ident, serverSelfIdent: serverSelfIdent, log: log}
}

// Validate runs the five validation steps in order and reports whether the
// bundle holds up. No detail of why a bundle failed escapes: internally the
// failures are distinct (and logged), but the caller only branches.
func (v *BundleValidator) Validate(ctx context.Context, bundle *core.SignupBundle, peerKey string) (*core.ValidatedBundle, bool) {
	var (
		payload *core.SelfIdentPayload
		auths   map[string]string
	)

	t := task.New("validate-signup-bundle", v.log,
		task.Step{Name: "verifySelfIdent", Run: func(ctx context.Context) task.Outcome {
			p, err := v.ident.VerifySelfIdent(bundle.SelfIdent)
			if err != nil {
				return task.Fail(fmt.Errorf("self-ident did not verify: %w", err))
			}
			payload = p
			return task.Continue(nil)
		}},
		task.Step{Name: "checkTransitServer", Run: func(ctx context.Context) task.Outcome {
			// Exact equality against our published blob: a semantically
			// equivalent but stale or re-signed server ident is a mismatch.
			if payload.TransitServerIdent != v.serverSelfIdent {
				return task.Fail(core.ErrKeyMismatch)
			}
			return task.Continue(nil)
		}},
		task.Step{Name: "checkProfile", Run: func(ctx context.Context) task.Outcome {
			if payload.Poco.DisplayName == "" {
				return task.Fail(fmt.Errorf("profile lacks a display name: %w", core.ErrMalformedPayload))
			}
			return task.Continue(nil)
		}},
		task.Step{Name: "verifyClientAuths", Run: func(ctx context.Context) task.Outcome {
			if len(bundle.ClientAuths) == 0 {
				return task.Fail(fmt.Errorf("no client authorizations: %w", core.ErrMalformedPayload))
			}
			verified := make(map[string]string, len(bundle.ClientAuths))
			for _, blob := range bundle.ClientAuths {
				auth, err := v.ident.VerifyClientAuth(blob, payload.RootSignPubKey)
				if err != nil {
					// One bad authorization rejects the whole bundle.
					return task.Fail(fmt.Errorf("client authorization did not verify: %w", err))
				}
				verified[auth.AuthorizedClientKey] = blob
			}
			auths = verified
			return task.Continue(nil)
		}},
		task.Step{Name: "checkPeerAuthorized", Run: func(ctx context.Context) task.Outcome {
			if _, ok := auths[peerKey]; !ok {
				// The peer is asking us to confirm or deny possession of
				// keys that are not theirs. Must be indistinguishable on
				// the wire from ordinary malformed input.
				return task.Fail(core.ErrUnauthorizedDataLeak)
			}
			return task.Continue(&core.ValidatedBundle{
				Payload:      payload,
				RawSelfIdent: bundle.SelfIdent,
				ClientAuths:  auths,
			})
		}},
	)

	value, ok := t.RunSoft(ctx)
	if !ok {
		return nil, false
	}
	return value.(*core.ValidatedBundle), true
}
