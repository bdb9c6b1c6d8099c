package core

import "errors"

var (
	// ErrMalformedPayload covers structurally invalid signup input: blobs
	// that fail to parse or verify, missing display names, bad bundles.
	ErrMalformedPayload = errors.New("malformed signup payload")

	// ErrKeyMismatch means the self-ident names a transit server other than
	// this one.
	ErrKeyMismatch = errors.New("self-ident names a different server")

	// ErrUnauthorizedDataLeak means the connection's key is absent from the
	// bundle's own client authorizations: the caller is probing keys that
	// are not theirs. On the wire it is indistinguishable from malformed
	// input.
	ErrUnauthorizedDataLeak = errors.New("connection key not named in client authorizations")

	// ErrAlreadySignedUp means an account already exists for the root key.
	ErrAlreadySignedUp = errors.New("account already exists")

	// ErrInvalidAssertion means a challenge assertion failed verification.
	ErrInvalidAssertion = errors.New("invalid challenge assertion")

	// ErrInternalProblem stands in for any collaborator failure whose
	// detail must not reach the peer.
	ErrInternalProblem = errors.New("internal problem")
)

// OutcomeForError maps the error taxonomy onto wire-visible challenge
// outcomes. MalformedPayload, KeyMismatch and UnauthorizedDataLeak all map
// to the same outcome on purpose: the response must not act as an oracle
// for which of the three occurred. Anything unrecognized is an internal
// problem.
func OutcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrKeyMismatch),
		errors.Is(err, ErrUnauthorizedDataLeak):
		return OutcomeNever
	case errors.Is(err, ErrAlreadySignedUp):
		return OutcomeAlreadySignedUp
	case errors.Is(err, ErrInvalidAssertion):
		return OutcomeBadAssertion
	default:
		return OutcomeTryAgainLater
	}
}
