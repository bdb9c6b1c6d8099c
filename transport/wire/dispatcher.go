// Package wire routes protocol messages to handlers by (state, verb). The
// route table is explicit and validated at construction, so adding
// multi-step states later is a table change, not a redesign.
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dropwire/dropwire/core"
)

const (
	// StateRoot is the initial state of every connection.
	StateRoot = "root"

	// StateClosed is the terminal state: the handler has sent its one
	// response and the connection is done.
	StateClosed = "closed"
)

// HandlerFunc processes one message. Returning an error is fatal to the
// connection only: the dispatcher answers with a generic challenge and
// closes, it never crashes the process.
type HandlerFunc func(ctx context.Context, conn Conn, body json.RawMessage) error

// Route binds a (state, verb) pair to a handler and the state the
// connection enters afterwards.
type Route struct {
	State   string
	Verb    string
	Next    string
	Handler HandlerFunc
}

// Envelope is the frame around every inbound message.
type Envelope struct {
	Verb string          `json:"verb"`
	Body json.RawMessage `json:"body"`
}

type routeKey struct {
	state string
	verb  string
}

// Dispatcher holds one endpoint's validated route table.
type Dispatcher struct {
	endpoint string
	routes   map[routeKey]Route
	log      *slog.Logger
}

// NewDispatcher validates the table: no duplicate (state, verb) pairs,
// every next-state recognized (a declared state or StateClosed), and every
// declared state reachable from root.
func NewDispatcher(endpoint string, log *slog.Logger, routes ...Route) (*Dispatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	table := make(map[routeKey]Route, len(routes))
	declared := map[string]bool{StateRoot: true}
	for _, r := range routes {
		key := routeKey{state: r.State, verb: r.Verb}
		if _, dup := table[key]; dup {
			return nil, fmt.Errorf("endpoint %q: duplicate route for state %q verb %q", endpoint, r.State, r.Verb)
		}
		table[key] = r
		declared[r.State] = true
	}

	for _, r := range routes {
		if r.Next != StateClosed && !declared[r.Next] {
			return nil, fmt.Errorf("endpoint %q: route %q/%q names unknown next-state %q", endpoint, r.State, r.Verb, r.Next)
		}
	}

	reachable := map[string]bool{StateRoot: true}
	for changed := true; changed; {
		changed = false
		for _, r := range routes {
			if reachable[r.State] && r.Next != StateClosed && !reachable[r.Next] {
				reachable[r.Next] = true
				changed = true
			}
		}
	}
	for state := range declared {
		if !reachable[state] {
			return nil, fmt.Errorf("endpoint %q: state %q is unreachable from root", endpoint, state)
		}
	}

	return &Dispatcher{endpoint: endpoint, routes: table, log: log}, nil
}

// Dispatch routes one message and returns the connection's next state. An
// unknown (state, verb) or a handler error ends the connection with a
// generic try-again-later challenge; handler detail stays in the log.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, state string, env Envelope) string {
	route, ok := d.routes[routeKey{state: state, verb: env.Verb}]
	if !ok {
		d.log.Warn("no handler for message",
			"endpoint", d.endpoint, "state", state, "verb", env.Verb, "conn", conn.ID())
		d.refuse(conn)
		return StateClosed
	}

	if err := route.Handler(ctx, conn, env.Body); err != nil {
		d.log.Error("handler failed",
			"endpoint", d.endpoint, "state", state, "verb", env.Verb, "conn", conn.ID(), "error", err)
		d.refuse(conn)
		return StateClosed
	}
	return route.Next
}

// refuse sends the generic terminal challenge and closes. Send errors are
// ignored: the connection may already be gone, and closing is all that is
// left to do.
func (d *Dispatcher) refuse(conn Conn) {
	_ = conn.Send(core.NewChallengeMessage(core.OutcomeTryAgainLater))
	_ = conn.Close()
}
