package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Reason string

const (
	ReasonMissingHeader      Reason = "missing_header"
	ReasonMalformedHeader    Reason = "malformed_header"
	ReasonKeysetUnavailable  Reason = "keyset_unavailable"
	ReasonMalformedToken     Reason = "malformed_token"
	ReasonNoMatchingKey      Reason = "no_matching_key"
	ReasonVerificationFailed Reason = "verification_failed"
)

// AuthError is terminal for the request: the caller maps Reason to a status
// and logs Err, which is never echoed to the client.
type AuthError struct {
	Reason Reason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Err.Error()
	}
	return string(e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

func denied(reason Reason, cause error) *AuthError {
	return &AuthError{Reason: reason, Err: cause}
}

// KeysetSource yields the current signing keys.
type KeysetSource interface {
	Get(ctx context.Context) (KeySet, error)
}

type Verifier struct {
	Keys     KeysetSource
	Audience string
	Issuer   string
}

func NewVerifier(keys KeysetSource, domain, audience string) *Verifier {
	return &Verifier{Keys: keys, Audience: audience, Issuer: "https://" + domain + "/"}
}

// Verify runs the full pipeline on a raw Authorization header value.
// Each stage is terminal on first failure; no retries.
func (v *Verifier) Verify(ctx context.Context, authorization string) (jwt.MapClaims, error) {
	if authorization == "" {
		return nil, denied(ReasonMissingHeader, nil)
	}
	// Fields tolerates any run of whitespace, including a header that is
	// nothing but spaces (zero fields, no index into parts).
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, denied(ReasonMalformedHeader, nil)
	}
	raw := parts[1]

	ks, err := v.Keys.Get(ctx)
	if err != nil {
		return nil, denied(ReasonKeysetUnavailable, err)
	}

	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, denied(ReasonMalformedToken, err)
	}
	kid, _ := tok.Header["kid"].(string)

	var key *JWK
	for i := range ks.Keys {
		if ks.Keys[i].Kid == kid {
			key = &ks.Keys[i]
			break
		}
	}
	if key == nil {
		return nil, denied(ReasonNoMatchingKey, nil)
	}

	pub, err := key.PublicKey()
	if err != nil {
		return nil, denied(ReasonVerificationFailed, err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.Audience),
		jwt.WithIssuer(v.Issuer),
		jwt.WithExpirationRequired(),
	)
	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	}); err != nil {
		return nil, denied(ReasonVerificationFailed, err)
	}
	return claims, nil
}

// PublicKey materializes the RSA key from the base64url modulus/exponent.
func (k *JWK) PublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 0 || e.Int64() > int64(^uint32(0)) {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}
