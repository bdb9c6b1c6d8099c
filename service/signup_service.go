// Package service composes the signup pipeline: bundle validation, the
// account-existence gate, the challenge gate, and provisioning. Each stage
// can terminate the pipeline early by answering the peer and closing; only
// a request that clears every gate reaches the account store.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dropwire/dropwire/challenge"
	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
	"github.com/dropwire/dropwire/task"
	"github.com/dropwire/dropwire/transport/wire"
)

// Config is the server identity the signup service speaks for.
type Config struct {
	// ServerName is the short name used in the well-known document path.
	ServerName string

	// SelfIdentBlob is this server's published self-identity; inbound
	// bundles must reference it exactly.
	SelfIdentBlob string
}

// SignupService decides whether an unauthenticated peer may provision an
// account.
type SignupService struct {
	cfg       Config
	store     ports.AccountStore
	events    ports.EventPublisher
	validator *BundleValidator
	auth      *challenge.Authenticator
	log       *slog.Logger
}

// NewSignupService wires the signup pipeline.
func NewSignupService(
	cfg Config,
	store ports.AccountStore,
	events ports.EventPublisher,
	ident ports.IdentityVerifier,
	auth *challenge.Authenticator,
	log *slog.Logger,
) *SignupService {
	if log == nil {
		log = slog.Default()
	}
	return &SignupService{
		cfg:       cfg,
		store:     store,
		events:    events,
		validator: NewBundleValidator(ident, cfg.SelfIdentBlob, log),
		auth:      auth,
		log:       log,
	}
}

// HandleSignup processes one signup request as an early-return task: the
// moment a stage answers the peer, the remaining stages never run. A
// returned error means the connection itself failed, not the request; the
// dispatcher deals with that.
func (s *SignupService) HandleSignup(ctx context.Context, conn wire.Conn, body json.RawMessage) error {
	var (
		bundle    core.SignupBundle
		validated *core.ValidatedBundle
	)

	t := task.New("signup", s.log,
		task.Step{Name: "parse", Run: func(ctx context.Context) task.Outcome {
			if err := json.Unmarshal(body, &bundle); err != nil {
				return s.refuse(conn, core.OutcomeNever)
			}
			return task.Continue(nil)
		}},
		task.Step{Name: "validateBundle", Run: func(ctx context.Context) task.Outcome {
			vb, ok := s.validator.Validate(ctx, &bundle, conn.PeerKey())
			if !ok {
				return s.refuse(conn, core.OutcomeNever)
			}
			validated = vb
			return task.Continue(nil)
		}},
		task.Step{Name: "checkExisting", Run: func(ctx context.Context) task.Outcome {
			exists, err := s.store.AccountExists(ctx, validated.Payload.RootSignPubKey)
			if err != nil {
				s.log.Error("account existence check failed", "conn", conn.ID(), "error", err)
				return s.refuse(conn, core.OutcomeForError(err))
			}
			if exists {
				return s.refuse(conn, core.OutcomeAlreadySignedUp)
			}
			return task.Continue(nil)
		}},
		task.Step{Name: "challenge", Run: func(ctx context.Context) task.Outcome {
			outcome := s.auth.Evaluate(ctx, validated.Payload, bundle.Because)
			if outcome.Failed() {
				return s.refuse(conn, outcome)
			}
			return task.Continue(nil)
		}},
		task.Step{Name: "createAccount", Run: func(ctx context.Context) task.Outcome {
			account := &core.NewAccount{
				Payload:      validated.Payload,
				RawSelfIdent: validated.RawSelfIdent,
				ClientAuths:  validated.ClientAuths,
				StoreKeyring: bundle.StoreKeyring,
			}
			if bundle.PublicListing {
				account.PublicListing = validated.RawSelfIdent
			}
			if err := s.store.CreateAccount(ctx, account); err != nil {
				// core.ErrAlreadySignedUp here means a concurrent signup
				// for the same identity won the race; the store's
				// atomicity contract surfaces it at create time.
				if !errors.Is(err, core.ErrAlreadySignedUp) {
					s.log.Error("account creation failed", "conn", conn.ID(), "error", err)
				}
				return s.refuse(conn, core.OutcomeForError(err))
			}
			return task.Continue(nil)
		}},
		task.Step{Name: "reply", Run: func(ctx context.Context) task.Outcome {
			s.announce(ctx, validated.Payload)
			s.log.Info("account provisioned",
				"conn", conn.ID(), "rootKey", validated.Payload.RootSignPubKey)
			if err := conn.Send(core.NewSignedUpMessage()); err != nil {
				return task.Fail(fmt.Errorf("sending signedUp: %w", err))
			}
			if err := conn.Close(); err != nil {
				return task.Fail(fmt.Errorf("closing connection: %w", err))
			}
			return task.Continue(nil)
		}},
	)

	_, err := t.Run(ctx)
	return err
}

// refuse answers the peer with a terminal challenge and ends the task. A
// send failure is fatal to the task; a terminal message that never arrived
// must not look like one that did.
func (s *SignupService) refuse(conn wire.Conn, outcome core.Outcome) task.Outcome {
	s.log.Info("signup refused", "conn", conn.ID(), "mechanism", outcome)
	if err := conn.Send(core.NewChallengeMessage(outcome)); err != nil {
		return task.Fail(fmt.Errorf("sending challenge: %w", err))
	}
	if err := conn.Close(); err != nil {
		return task.Fail(fmt.Errorf("closing connection: %w", err))
	}
	return task.Return(outcome)
}

// announce publishes the signup event. Best-effort: the account exists
// whether or not anyone hears about it.
func (s *SignupService) announce(ctx context.Context, payload *core.SelfIdentPayload) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSignup(ctx, payload.RootSignPubKey, payload.Poco.DisplayName); err != nil {
		s.log.Warn("signup event not published", "error", err)
	}
}
