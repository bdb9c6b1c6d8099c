package challenge_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropwire/dropwire/adapters/browserid"
	"github.com/dropwire/dropwire/challenge"
	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/internal/identtest"
)

const audience = "extension-id-12345"

// fixture mints a complete, internally consistent browserid response:
// a single-link chain certifying `email` and an assertion signed with the
// certified key.
type fixture struct {
	chain     *identtest.CertChain
	leafPub   ed25519.PublicKey
	leafPriv  ed25519.PrivateKey
	certExp   time.Time
	assertExp time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &fixture{
		chain:     identtest.NewCertChain(t, "login.example-issuer"),
		leafPub:   pub,
		leafPriv:  priv,
		certExp:   time.Now().Add(time.Hour),
		assertExp: time.Now().Add(time.Hour),
	}
}

func (f *fixture) response(t *testing.T, email, aud string) json.RawMessage {
	t.Helper()
	cert := f.chain.MintCert(t, email, f.leafPub, f.certExp)
	assertion := identtest.MintAssertion(t, f.leafPriv, aud, f.assertExp)
	raw, err := json.Marshal(map[string]any{
		"assertion":    assertion,
		"certificates": []string{cert},
	})
	require.NoError(t, err)
	return raw
}

func (f *fixture) verifier(t *testing.T) *challenge.BrowserIDVerifier {
	t.Helper()
	chains := browserid.NewChainVerifier(f.chain.Resolve)
	return challenge.NewBrowserIDVerifier(chains, nil, nil)
}

func claimFor(email string, response json.RawMessage) *challenge.Claim {
	payload := &core.SelfIdentPayload{
		Poco: core.PortableContact{DisplayName: "Alice"},
	}
	if email != "" {
		payload.Poco.Emails = []string{email}
	}
	return &challenge.Claim{Payload: payload, Response: response}
}

func settle(t *testing.T, r *challenge.Result) core.Outcome {
	t.Helper()
	outcome, err := r.Wait(context.Background())
	require.NoError(t, err)
	return outcome
}

func TestValidAssertionPasses(t *testing.T) {
	f := newFixture(t)
	v := f.verifier(t)

	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", f.response(t, "alice@example.com", audience))))
	assert.Equal(t, core.OutcomePass, outcome)
}

func TestIdentityWithoutExactlyOneEmailFailsImmediately(t *testing.T) {
	f := newFixture(t)
	v := f.verifier(t)

	for name, payload := range map[string]*core.SelfIdentPayload{
		"no email":   {Poco: core.PortableContact{DisplayName: "Alice"}},
		"two emails": {Poco: core.PortableContact{DisplayName: "Alice", Emails: []string{"a@x.com", "b@x.com"}}},
	} {
		t.Run(name, func(t *testing.T) {
			claim := &challenge.Claim{Payload: payload, Response: f.response(t, "a@x.com", audience)}
			result := v.Verify(context.Background(), claim)
			outcome, ready := result.Ready()
			require.True(t, ready, "precondition failures must settle synchronously")
			assert.Equal(t, core.OutcomeBadAssertion, outcome)
		})
	}
}

func TestMalformedResponseFailsImmediately(t *testing.T) {
	f := newFixture(t)
	v := f.verifier(t)

	for name, raw := range map[string]json.RawMessage{
		"not json":        json.RawMessage(`"nope`),
		"empty object":    json.RawMessage(`{}`),
		"no certificates": json.RawMessage(`{"assertion":"x"}`),
	} {
		t.Run(name, func(t *testing.T) {
			result := v.Verify(context.Background(), claimFor("alice@example.com", raw))
			outcome, ready := result.Ready()
			require.True(t, ready)
			assert.Equal(t, core.OutcomeBadAssertion, outcome)
		})
	}
}

func TestExpiredChainIsServerProblem(t *testing.T) {
	f := newFixture(t)
	f.certExp = time.Now().Add(-time.Hour)
	v := f.verifier(t)

	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", f.response(t, "alice@example.com", audience))))
	assert.Equal(t, core.OutcomeTryAgainLater, outcome,
		"a chain that fails to verify is never the peer's fault")
}

func TestUntrustedIssuerIsServerProblem(t *testing.T) {
	f := newFixture(t)
	other := identtest.NewCertChain(t, "login.other-issuer")
	cert := other.MintCert(t, "alice@example.com", f.leafPub, f.certExp)
	assertion := identtest.MintAssertion(t, f.leafPriv, audience, f.assertExp)
	raw, err := json.Marshal(map[string]any{
		"assertion":    assertion,
		"certificates": []string{cert},
	})
	require.NoError(t, err)

	v := f.verifier(t)
	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", raw)))
	assert.Equal(t, core.OutcomeTryAgainLater, outcome)
}

func TestEmailMismatchFailsEvenWithValidChain(t *testing.T) {
	f := newFixture(t)
	v := f.verifier(t)

	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", f.response(t, "mallory@example.com", audience))))
	assert.Equal(t, core.OutcomeBadAssertion, outcome)
}

func TestDomainAudienceIsRejectedByDefaultPolicy(t *testing.T) {
	f := newFixture(t)
	v := f.verifier(t)

	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", f.response(t, "alice@example.com", "https://evil.example.com"))))
	assert.Equal(t, core.OutcomeBadAssertion, outcome)
}

func TestCustomOriginPolicyIsHonored(t *testing.T) {
	f := newFixture(t)
	chains := browserid.NewChainVerifier(f.chain.Resolve)
	v := challenge.NewBrowserIDVerifier(chains, func(origin string) bool {
		return origin == "trusted.example.com"
	}, nil)

	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", f.response(t, "alice@example.com", "trusted.example.com"))))
	assert.Equal(t, core.OutcomePass, outcome)
}

func TestAssertionSignedByWrongKeyFails(t *testing.T) {
	f := newFixture(t)
	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cert := f.chain.MintCert(t, "alice@example.com", f.leafPub, f.certExp)
	assertion := identtest.MintAssertion(t, otherPriv, audience, f.assertExp)
	raw, err := json.Marshal(map[string]any{
		"assertion":    assertion,
		"certificates": []string{cert},
	})
	require.NoError(t, err)

	v := f.verifier(t)
	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", raw)))
	assert.Equal(t, core.OutcomeBadAssertion, outcome)
}

func TestMultiLinkChainVerifies(t *testing.T) {
	f := newFixture(t)

	// Root issuer certifies an intermediate key; the intermediate certifies
	// the leaf. Mint the second link by hand with the intermediate key.
	intermediatePub, intermediatePriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	rootLink := f.chain.MintCert(t, "alice@example.com", intermediatePub, f.certExp)
	intermediate := &identtest.CertChain{Issuer: "intermediate", RootPub: intermediatePub, RootPriv: intermediatePriv}
	leafLink := intermediate.MintCert(t, "alice@example.com", f.leafPub, f.certExp)

	assertion := identtest.MintAssertion(t, f.leafPriv, audience, f.assertExp)
	raw, err := json.Marshal(map[string]any{
		"assertion":    assertion,
		"certificates": []string{rootLink, leafLink},
	})
	require.NoError(t, err)

	v := f.verifier(t)
	outcome := settle(t, v.Verify(context.Background(), claimFor("alice@example.com", raw)))
	assert.Equal(t, core.OutcomePass, outcome)
}
