package ports

import "context"

// EventPublisher notifies other instances and daemons about completed
// signups. Publishing is best-effort: a failed publish never fails the
// signup itself.
type EventPublisher interface {
	PublishSignup(ctx context.Context, rootSignPubKey, displayName string) error
}
