// Package jose implements the identity primitives over EdDSA-signed JWS
// blobs: self-signed self-ident payloads and root-key-signed client
// authorizations.
package jose

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/ports"
)

type selfIdentClaims struct {
	jwt.RegisteredClaims
	RootSignPubKey     string               `json:"rootSignPubKey"`
	TransitServerIdent string               `json:"transitServerIdent,omitempty"`
	Poco               core.PortableContact `json:"poco"`
}

type clientAuthClaims struct {
	jwt.RegisteredClaims
	AuthorizedClientKey string `json:"authorizedClientKey"`
}

// EncodeKey renders an Ed25519 public key in the textual form used
// throughout the protocol.
func EncodeKey(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}

// DecodeKey parses the textual key form back into an Ed25519 public key.
func DecodeKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is not base64url: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// Verifier implements ports.IdentityVerifier. Every parse or signature
// failure wraps core.ErrMalformedPayload; malformed input is never silently
// accepted.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

var _ ports.IdentityVerifier = (*Verifier)(nil)

// VerifySelfIdent checks a self-ident blob against the root key embedded in
// its own payload: the blob must parse, the embedded key must decode, and
// the signature must verify with that key.
func (v *Verifier) VerifySelfIdent(blob string) (*core.SelfIdentPayload, error) {
	// First pass without verification, to learn which key the payload
	// claims to be signed with.
	unverified := &selfIdentClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if _, _, err := parser.ParseUnverified(blob, unverified); err != nil {
		return nil, fmt.Errorf("%w: self-ident does not parse: %v", core.ErrMalformedPayload, err)
	}
	rootKey, err := DecodeKey(unverified.RootSignPubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: self-ident root key: %v", core.ErrMalformedPayload, err)
	}

	claims := &selfIdentClaims{}
	token, err := parser.ParseWithClaims(blob, claims, func(*jwt.Token) (any, error) {
		return rootKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: self-ident signature: %v", core.ErrMalformedPayload, err)
	}

	return &core.SelfIdentPayload{
		RootSignPubKey:     claims.RootSignPubKey,
		TransitServerIdent: claims.TransitServerIdent,
		Poco:               claims.Poco,
	}, nil
}

// VerifyClientAuth checks an authorization blob against the identity's root
// signing key.
func (v *Verifier) VerifyClientAuth(blob string, rootSignPubKey string) (*core.ClientAuthorization, error) {
	rootKey, err := DecodeKey(rootSignPubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: root key: %v", core.ErrMalformedPayload, err)
	}

	claims := &clientAuthClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	token, err := parser.ParseWithClaims(blob, claims, func(*jwt.Token) (any, error) {
		return rootKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: client authorization: %v", core.ErrMalformedPayload, err)
	}
	if claims.AuthorizedClientKey == "" {
		return nil, fmt.Errorf("%w: client authorization names no key", core.ErrMalformedPayload)
	}

	return &core.ClientAuthorization{AuthorizedClientKey: claims.AuthorizedClientKey}, nil
}

// Signer mints the blobs the Verifier checks. The server uses it for its
// own self-ident document; client tooling and tests use it to build
// bundles.
type Signer struct {
	priv ed25519.PrivateKey
}

func NewSigner(priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv}
}

// PublicKey is the textual form of the signing key's public half.
func (s *Signer) PublicKey() string {
	return EncodeKey(s.priv.Public().(ed25519.PublicKey))
}

// SignSelfIdent mints a self-ident blob. The payload's RootSignPubKey is
// forced to this signer's own key so the blob is self-consistent.
func (s *Signer) SignSelfIdent(payload *core.SelfIdentPayload) (string, error) {
	claims := &selfIdentClaims{
		RootSignPubKey:     s.PublicKey(),
		TransitServerIdent: payload.TransitServerIdent,
		Poco:               payload.Poco,
	}
	blob, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.priv)
	if err != nil {
		return "", fmt.Errorf("signing self-ident: %w", err)
	}
	return blob, nil
}

// SignClientAuth mints an authorization for one client public key.
func (s *Signer) SignClientAuth(clientPubKey string) (string, error) {
	claims := &clientAuthClaims{AuthorizedClientKey: clientPubKey}
	blob, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.priv)
	if err != nil {
		return "", fmt.Errorf("signing client authorization: %w", err)
	}
	return blob, nil
}
