package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
	"github.com/dropwire/dropwire/task"
	"github.com/dropwire/dropwire/transport/wire"
)

// PhonebookService serves the public listing of identities willing to be
// discovered via this server.
type PhonebookService struct {
	store ports.AccountStore
	log   *slog.Logger
}

func NewPhonebookService(store ports.AccountStore, log *slog.Logger) *PhonebookService {
	if log == nil {
		log = slog.Default()
	}
	return &PhonebookService{store: store, log: log}
}

// HandleListPeeps fetches the listing and replies with one listing message,
// then closes.
func (s *PhonebookService) HandleListPeeps(ctx context.Context, conn wire.Conn, _ json.RawMessage) error {
	var blobs []string

	t := task.New("list-peeps", s.log,
		task.Step{Name: "fetch", Run: func(ctx context.Context) task.Outcome {
			listing, err := s.store.ScanPublicListing(ctx)
			if err != nil {
				s.log.Error("public listing scan failed", "conn", conn.ID(), "error", err)
				if err := conn.Send(core.NewChallengeMessage(core.OutcomeTryAgainLater)); err != nil {
					return task.Fail(fmt.Errorf("sending challenge: %w", err))
				}
				if err := conn.Close(); err != nil {
					return task.Fail(fmt.Errorf("closing connection: %w", err))
				}
				return task.Return(nil)
			}
			blobs = listing
			return task.Continue(nil)
		}},
		task.Step{Name: "reply", Run: func(ctx context.Context) task.Outcome {
			if err := conn.Send(core.NewListingMessage(blobs)); err != nil {
				return task.Fail(fmt.Errorf("sending listing: %w", err))
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
