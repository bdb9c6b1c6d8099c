package ports

import (
	"context"
	"crypto/ed25519"
	"time"
)

// ChainResult is what a verified certificate chain yields: the key the leaf
// certificate delegates to and the principal e-mail the chain certifies.
type ChainResult struct {
	PublicKey ed25519.PublicKey
	Principal string
}

// Assertion is the decoded (not yet signature-checked) claims of an
// assertion token.
type Assertion struct {
	Audience string
}

// ChainVerifier wraps the certificate-chain verification library used by
// the BrowserID challenge. Chains are verified as of the given time with no
// backdating tolerance.
type ChainVerifier interface {
	// VerifyChain verifies the certificate list root-first as of `at` and
	// returns the chain-derived key and principal.
	VerifyChain(ctx context.Context, certificates []string, at time.Time) (*ChainResult, error)

	// DecodeAssertion extracts the assertion's claims without verifying its
	// signature.
	DecodeAssertion(assertion string) (*Assertion, error)

	// VerifyAssertionSignature checks the assertion's signature and
	// validity window against the chain-derived key as of `at`.
	VerifyAssertionSignature(assertion string, key ed25519.PublicKey, at time.Time) error
}
