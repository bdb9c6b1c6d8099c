package core

// ChallengeKind names an extra-verification mechanism the server may require
// before provisioning an account.
type ChallengeKind string

const (
	// ChallengeNone is the open-signup mechanism: its presence in the
	// catalog means every request passes the challenge gate.
	ChallengeNone ChallengeKind = "none"

	// ChallengeBrowserID requires a BrowserID-style e-mail assertion.
	ChallengeBrowserID ChallengeKind = "browserid"
)

// Outcome is the terminal result of the challenge gate. The zero value means
// the gate passed; every other value is sent to the peer as a challenge
// mechanism name and ends the signup attempt.
type Outcome string

const (
	// OutcomePass is not a wire value; it means no challenge stood in the way.
	OutcomePass Outcome = ""

	// OutcomeNever: the request can never succeed, no matter how it is
	// resubmitted. Covers malformed payloads, server mismatches, and
	// unauthorized probes alike so the three are indistinguishable.
	OutcomeNever Outcome = "never"

	OutcomeAlreadySignedUp Outcome = "already-signed-up"
	OutcomeBadAssertion    Outcome = "bad-browserid-assertion"
	OutcomeTryAgainLater   Outcome = "server-problem-try-again-later"
)

// Failed reports whether the outcome ends the signup attempt.
func (o Outcome) Failed() bool {
	return o != OutcomePass
}

// Catalog is the server-authoritative ordered set of supported challenge
// kinds. It is fixed at construction so the set used to validate a response
// is always the set that was offered.
type Catalog struct {
	kinds []ChallengeKind
}

// NewCatalog builds a catalog preserving the given order.
func NewCatalog(kinds ...ChallengeKind) Catalog {
	return Catalog{kinds: append([]ChallengeKind(nil), kinds...)}
}

// Contains reports whether the catalog offers the given kind.
func (c Catalog) Contains(kind ChallengeKind) bool {
	for _, k := range c.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Kinds returns the catalog in its declared order.
func (c Catalog) Kinds() []ChallengeKind {
	return append([]ChallengeKind(nil), c.kinds...)
}
