package ports

import (
	"context"

	"github.com/dropwire/dropwire/core"
)

// AccountStore is the persistent account collaborator. CreateAccount must be
// atomic with respect to AccountExists at the granularity of one root key:
// concurrent signups for the same identity must not both succeed. The core
// relies on that contract, it does not lock.
type AccountStore interface {
	// AccountExists reports whether an account is provisioned for the root
	// signing key.
	AccountExists(ctx context.Context, rootSignPubKey string) (bool, error)

	// CreateAccount provisions an account. Returns core.ErrAlreadySignedUp
	// when the root key is already taken.
	CreateAccount(ctx context.Context, account *core.NewAccount) error

	// ScanPublicListing returns the self-ident blobs of every identity that
	// opted into discovery.
	ScanPublicListing(ctx context.Context) ([]string, error)
}
