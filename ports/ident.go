package ports

import "github.com/dropwire/dropwire/core"

// IdentityVerifier wraps the identity-primitive library: parse-and-verify
// for self-ident blobs and client authorizations. Implementations return a
// typed error (wrapping core.ErrMalformedPayload) on any structural or
// cryptographic failure; malformed input is never silently accepted.
type IdentityVerifier interface {
	// VerifySelfIdent checks that the blob is self-consistent: its signature
	// verifies against the root signing key embedded in its own payload.
	VerifySelfIdent(blob string) (*core.SelfIdentPayload, error)

	// VerifyClientAuth checks that the authorization blob was signed by the
	// given root signing key and returns the attestation it carries.
	VerifyClientAuth(blob string, rootSignPubKey string) (*core.ClientAuthorization, error)
}
