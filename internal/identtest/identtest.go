// Package identtest builds the signed fixtures tests need: identities with
// self-ident blobs, client authorizations, and BrowserID certificate chains.
package identtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropwire/dropwire/adapters/jose"
	"github.com/dropwire/dropwire/core"
)

// Identity is a test identity with its long-term root key and signed
// self-ident blob.
type Identity struct {
	RootPriv  ed25519.PrivateKey
	RootPub   string
	SelfIdent string
	Payload   core.SelfIdentPayload
}

// NewKeyPair generates an Ed25519 pair, returning the encoded public half.
func NewKeyPair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return jose.EncodeKey(pub), priv
}

// NewIdentity mints an identity whose self-ident names the given transit
// server blob.
func NewIdentity(t *testing.T, transitServerIdent, displayName string, emails ...string) *Identity {
	t.Helper()
	pub, priv := NewKeyPair(t)
	payload := core.SelfIdentPayload{
		RootSignPubKey:     pub,
		TransitServerIdent: transitServerIdent,
		Poco: core.PortableContact{
			DisplayName: displayName,
			Emails:      emails,
		},
	}
	blob, err := jose.NewSigner(priv).SignSelfIdent(&payload)
	if err != nil {
		t.Fatalf("signing self-ident: %v", err)
	}
	return &Identity{RootPriv: priv, RootPub: pub, SelfIdent: blob, Payload: payload}
}

// Authorize mints a client authorization for the given client public key,
// signed by the identity's root key.
func (id *Identity) Authorize(t *testing.T, clientPubKey string) string {
	t.Helper()
	blob, err := jose.NewSigner(id.RootPriv).SignClientAuth(clientPubKey)
	if err != nil {
		t.Fatalf("signing client authorization: %v", err)
	}
	return blob
}

// Bundle assembles a signup bundle for the identity.
func (id *Identity) Bundle(t *testing.T, clientAuths ...string) *core.SignupBundle {
	t.Helper()
	return &core.SignupBundle{
		SelfIdent:   id.SelfIdent,
		ClientAuths: clientAuths,
	}
}

// CertChain is the fixture side of the BrowserID world: a trusted root
// issuer and the key material to mint chains and assertions.
type CertChain struct {
	Issuer   string
	RootPub  ed25519.PublicKey
	RootPriv ed25519.PrivateKey
}

// NewCertChain creates a root issuer fixture.
func NewCertChain(t *testing.T, issuer string) *CertChain {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating issuer key: %v", err)
	}
	return &CertChain{Issuer: issuer, RootPub: pub, RootPriv: priv}
}

// Resolve is a RootResolver accepting only this fixture's issuer.
func (c *CertChain) Resolve(issuer string) (ed25519.PublicKey, error) {
	if issuer != c.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	return c.RootPub, nil
}

// MintCert mints one certificate: the issuer key certifies that `email`
// holds the delegated public key until `exp`.
func (c *CertChain) MintCert(t *testing.T, email string, delegated ed25519.PublicKey, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": c.Issuer,
		"exp": exp.Unix(),
		"principal": map[string]string{
			"email": email,
		},
		"publicKey": jose.EncodeKey(delegated),
	}
	cert, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(c.RootPriv)
	if err != nil {
		t.Fatalf("minting certificate: %v", err)
	}
	return cert
}

// MintAssertion mints an assertion for the audience, signed with the
// delegated private key, valid until `exp`.
func MintAssertion(t *testing.T, priv ed25519.PrivateKey, audience string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"aud": audience,
		"exp": exp.Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("minting assertion: %v", err)
	}
	return assertion
}
