package challenge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
)

// OriginPolicy decides whether an assertion audience is a client origin
// this server trusts.
type OriginPolicy func(origin string) bool

// DefaultOriginPolicy rejects any origin containing a dot: only non-domain
// client origins such as local extension identifiers are accepted. A
// deliberately narrow initial trust policy; inject your own to widen it.
func DefaultOriginPolicy(origin string) bool {
	return origin != "" && !strings.Contains(origin, ".")
}

// assertionBundle is the shape of the `because.browserid` response: an
// assertion token plus the certificate chain backing it.
type assertionBundle struct {
	Assertion    string   `json:"assertion"`
	Certificates []string `json:"certificates"`
}

// BrowserIDVerifier proves control of the e-mail address a self-ident
// claims, via a BrowserID-style certificate chain and assertion.
type BrowserIDVerifier struct {
	chains   ports.ChainVerifier
	originOK OriginPolicy
	now      func() time.Time
	log      *slog.Logger
}

// NewBrowserIDVerifier builds the verifier. policy nil means
// DefaultOriginPolicy.
func NewBrowserIDVerifier(chains ports.ChainVerifier, policy OriginPolicy, log *slog.Logger) *BrowserIDVerifier {
	if policy == nil {
		policy = DefaultOriginPolicy
	}
	if log == nil {
		log = slog.Default()
	}
	return &BrowserIDVerifier{chains: chains, originOK: policy, now: time.Now, log: log}
}

func (v *BrowserIDVerifier) Kind() core.ChallengeKind {
	return core.ChallengeBrowserID
}

// Verify settles immediately for inputs that can be rejected without any
// cryptography: an identity that does not claim exactly one e-mail, or a
// response that is not an assertion bundle. Chain verification is deferred.
func (v *BrowserIDVerifier) Verify(ctx context.Context, claim *Claim) *Result {
	emails := claim.Payload.Poco.Emails
	if len(emails) != 1 {
		return Resolved(core.OutcomeBadAssertion)
	}
	claimedEmail := emails[0]

	var bundle assertionBundle
	if err := json.Unmarshal(claim.Response, &bundle); err != nil ||
		bundle.Assertion == "" || len(bundle.Certificates) == 0 {
		return Resolved(core.OutcomeBadAssertion)
	}

	return Defer(func() core.Outcome {
		return v.check(ctx, &bundle, claimedEmail)
	})
}

// check verifies the chain as of now (no backdating tolerance), then the
// assertion: audience accepted by the origin policy, asserted principal
// equal to the claimed e-mail, signature valid against the chain-derived
// key. Chain trouble is the server's problem; everything else is the
// peer's.
func (v *BrowserIDVerifier) check(ctx context.Context, bundle *assertionBundle, claimedEmail string) core.Outcome {
	at := v.now()

	chain, err := v.chains.VerifyChain(ctx, bundle.Certificates, at)
	if err != nil {
		v.log.Warn("certificate chain did not verify", "error", err)
		return core.OutcomeTryAgainLater
	}

	assertion, err := v.chains.DecodeAssertion(bundle.Assertion)
	if err != nil {
		return core.OutcomeBadAssertion
	}
	if !v.originOK(assertion.Audience) {
		return core.OutcomeBadAssertion
	}
	if chain.Principal != claimedEmail {
		return core.OutcomeBadAssertion
	}
	if err := v.chains.VerifyAssertionSignature(bundle.Assertion, chain.PublicKey, at); err != nil {
		return core.OutcomeBadAssertion
	}
	return core.OutcomePass
}
