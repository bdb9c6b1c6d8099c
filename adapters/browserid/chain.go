// Package browserid implements the certificate-chain verifier behind the
// BrowserID challenge. Certificates and assertions are EdDSA-signed JWS
// tokens: each certificate names a principal e-mail and delegates to a
// public key; the first is signed by a trusted root issuer, each subsequent
// one by the key its predecessor delegated to.
package browserid

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropwire/dropwire/adapters/jose"
	"github.com/dropwire/dropwire/ports"
)

// RootResolver maps a certificate issuer name to its trusted public key, or
// fails for issuers this server does not trust.
type RootResolver func(issuer string) (ed25519.PublicKey, error)

type certClaims struct {
	jwt.RegisteredClaims
	Principal struct {
		Email string `json:"email"`
	} `json:"principal"`
	PublicKey string `json:"publicKey"`
}

type assertionClaims struct {
	jwt.RegisteredClaims
}

// ChainVerifier implements ports.ChainVerifier.
type ChainVerifier struct {
	resolve RootResolver
}

func NewChainVerifier(resolve RootResolver) *ChainVerifier {
	return &ChainVerifier{resolve: resolve}
}

var _ ports.ChainVerifier = (*ChainVerifier)(nil)

// VerifyChain walks the certificate list root-first. Every certificate's
// signature and validity window are checked as of `at`; an expired link
// anywhere breaks the chain.
func (v *ChainVerifier) VerifyChain(ctx context.Context, certificates []string, at time.Time) (*ports.ChainResult, error) {
	if len(certificates) == 0 {
		return nil, fmt.Errorf("empty certificate chain")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return at }),
		jwt.WithExpirationRequired(),
	)

	var signingKey ed25519.PublicKey
	var leaf *certClaims
	for i, cert := range certificates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if i == 0 {
			// The root link is anchored by the issuer it names.
			unverified := &certClaims{}
			if _, _, err := parser.ParseUnverified(cert, unverified); err != nil {
				return nil, fmt.Errorf("certificate 0 does not parse: %w", err)
			}
			rootKey, err := v.resolve(unverified.Issuer)
			if err != nil {
				return nil, fmt.Errorf("untrusted issuer %q: %w", unverified.Issuer, err)
			}
			signingKey = rootKey
		}

		claims := &certClaims{}
		token, err := parser.ParseWithClaims(cert, claims, func(*jwt.Token) (any, error) {
			return signingKey, nil
		})
		if err != nil || !token.Valid {
			return nil, fmt.Errorf("certificate %d did not verify: %w", i, err)
		}

		delegated, err := jose.DecodeKey(claims.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("certificate %d delegates to a bad key: %w", i, err)
		}
		signingKey = delegated
		leaf = claims
	}

	return &ports.ChainResult{
		PublicKey: signingKey,
		Principal: leaf.Principal.Email,
	}, nil
}

// DecodeAssertion extracts the assertion claims without checking the
// signature; the caller decides when signature verification happens.
func (v *ChainVerifier) DecodeAssertion(assertion string) (*ports.Assertion, error) {
	claims := &assertionClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if _, _, err := parser.ParseUnverified(assertion, claims); err != nil {
		return nil, fmt.Errorf("assertion does not parse: %w", err)
	}
	audience, err := claims.GetAudience()
	if err != nil || len(audience) != 1 {
		return nil, fmt.Errorf("assertion audience is malformed")
	}
	return &ports.Assertion{Audience: audience[0]}, nil
}

// VerifyAssertionSignature checks the assertion against the chain-derived
// key as of `at`.
func (v *ChainVerifier) VerifyAssertionSignature(assertion string, key ed25519.PublicKey, at time.Time) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return at }),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(assertion, &assertionClaims{}, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("assertion signature did not verify: %w", err)
	}
	return nil
}
