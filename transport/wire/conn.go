package wire

// Conn is one authenticated peer connection as the protocol core sees it:
// a peer public key established by the transport, a way to send one JSON
// message, and a way to close. Framing and connection setup belong to the
// transport binding.
type Conn interface {
	// ID identifies the connection for logging.
	ID() string

	// PeerKey is the public key the transport authenticated for this peer.
	PeerKey() string

	// Send writes one message to the peer.
	Send(msg any) error

	// Close tears the connection down. Results of in-flight work arriving
	// after Close are discarded.
	Close() error
}
