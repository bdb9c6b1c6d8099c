package http

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dropwire/dropwire/transport/wire"
)

// oneshotConn adapts the request/response/close protocol cycle onto a
// single HTTP exchange: the one message a handler sends becomes the
// response body, and Close marks the cycle finished. Anything sent after
// Close is discarded, matching the connection-drop contract.
type oneshotConn struct {
	mu      sync.Mutex
	id      string
	peerKey string
	msg     any
	sent    bool
	closed  bool
}

func newOneshotConn(peerKey string) *oneshotConn {
	return &oneshotConn{
		id:      uuid.NewString(),
		peerKey: peerKey,
	}
}

var _ wire.Conn = (*oneshotConn)(nil)

func (c *oneshotConn) ID() string {
	return c.id
}

func (c *oneshotConn) PeerKey() string {
	return c.peerKey
}

func (c *oneshotConn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.sent {
		// Discard; the cycle already produced its one terminal message.
		return nil
	}
	c.msg = msg
	c.sent = true
	return nil
}

func (c *oneshotConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

// message returns the terminal message, if one was sent.
func (c *oneshotConn) message() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.msg, c.sent
}
