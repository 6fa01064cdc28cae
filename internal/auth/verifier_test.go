package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDomain   = "tenant.example.auth0.com"
	testAudience = "https://items.example.com/api"
)

type stubKeys struct {
	set KeySet
	err error
}

func (s stubKeys) Get(context.Context) (KeySet, error) { return s.set, s.err }

func jwkFromPublic(pub *rsa.PublicKey, kid string) JWK {
	return JWK{
		Kid: kid,
		Kty: "RSA",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": "https://" + testDomain + "/",
		"aud": testAudience,
		"sub": "auth0|user-42",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

func requireReason(t *testing.T, err error, want Reason) *AuthError {
	t.Helper()
	require.Error(t, err)
	var ae *AuthError
	require.True(t, errors.As(err, &ae), "expected *AuthError, got %T: %v", err, err)
	assert.Equal(t, want, ae.Reason)
	return ae
}

func TestVerify_MissingHeader(t *testing.T) {
	v := NewVerifier(stubKeys{}, testDomain, testAudience)
	_, err := v.Verify(context.Background(), "")
	requireReason(t, err, ReasonMissingHeader)
}

func TestVerify_MalformedHeader(t *testing.T) {
	v := NewVerifier(stubKeys{}, testDomain, testAudience)
	for _, h := range []string{
		"Bearer",
		"Basic abc123",
		"Bearer a b",
		"   ", // whitespace only: zero fields, must not panic
	} {
		_, err := v.Verify(context.Background(), h)
		requireReason(t, err, ReasonMalformedHeader)
	}
}

func TestVerify_KeysetUnavailable(t *testing.T) {
	v := NewVerifier(stubKeys{err: ErrFetch}, testDomain, testAudience)
	_, err := v.Verify(context.Background(), "Bearer whatever")
	ae := requireReason(t, err, ReasonKeysetUnavailable)
	assert.ErrorIs(t, ae.Err, ErrFetch)
}

func TestVerify_MalformedKeysetIsUnavailable(t *testing.T) {
	v := NewVerifier(stubKeys{err: ErrMalformed}, testDomain, testAudience)
	_, err := v.Verify(context.Background(), "Bearer whatever")
	ae := requireReason(t, err, ReasonKeysetUnavailable)
	assert.ErrorIs(t, ae.Err, ErrMalformed)
}

func TestVerify_MalformedToken(t *testing.T) {
	key := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&key.PublicKey, "kid-1")}}}
	v := NewVerifier(src, testDomain, testAudience)

	_, err := v.Verify(context.Background(), "Bearer not.a.token")
	requireReason(t, err, ReasonMalformedToken)
}

func TestVerify_NoMatchingKey(t *testing.T) {
	key := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&key.PublicKey, "kid-a")}}}
	v := NewVerifier(src, testDomain, testAudience)

	raw := signToken(t, key, "kid-unknown", validClaims())
	_, err := v.Verify(context.Background(), "Bearer "+raw)
	requireReason(t, err, ReasonNoMatchingKey)
}

func TestVerify_WrongAudience(t *testing.T) {
	key := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&key.PublicKey, "kid-1")}}}
	v := NewVerifier(src, testDomain, testAudience)

	claims := validClaims()
	claims["aud"] = "https://other.example.com/api"
	raw := signToken(t, key, "kid-1", claims)

	_, err := v.Verify(context.Background(), "Bearer "+raw)
	requireReason(t, err, ReasonVerificationFailed)
}

func TestVerify_WrongIssuer(t *testing.T) {
	key := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&key.PublicKey, "kid-1")}}}
	v := NewVerifier(src, testDomain, testAudience)

	claims := validClaims()
	claims["iss"] = "https://evil.example.com/"
	raw := signToken(t, key, "kid-1", claims)

	_, err := v.Verify(context.Background(), "Bearer "+raw)
	requireReason(t, err, ReasonVerificationFailed)
}

func TestVerify_Expired(t *testing.T) {
	key := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&key.PublicKey, "kid-1")}}}
	v := NewVerifier(src, testDomain, testAudience)

	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	raw := signToken(t, key, "kid-1", claims)

	_, err := v.Verify(context.Background(), "Bearer "+raw)
	requireReason(t, err, ReasonVerificationFailed)
}

func TestVerify_WrongSigningKey(t *testing.T) {
	published := testRSAKey(t)
	imposter := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&published.PublicKey, "kid-1")}}}
	v := NewVerifier(src, testDomain, testAudience)

	raw := signToken(t, imposter, "kid-1", validClaims())
	_, err := v.Verify(context.Background(), "Bearer "+raw)
	requireReason(t, err, ReasonVerificationFailed)
}

func TestVerify_RoundTrip(t *testing.T) {
	key := testRSAKey(t)
	other := testRSAKey(t)
	// First entry does not match; the scan must pick the second by kid.
	src := stubKeys{set: KeySet{Keys: []JWK{
		jwkFromPublic(&other.PublicKey, "kid-old"),
		jwkFromPublic(&key.PublicKey, "kid-current"),
	}}}
	v := NewVerifier(src, testDomain, testAudience)

	raw := signToken(t, key, "kid-current", validClaims())
	claims, err := v.Verify(context.Background(), "Bearer "+raw)
	require.NoError(t, err)

	sub, _ := claims["sub"].(string)
	assert.Equal(t, "auth0|user-42", sub)
}

func TestVerify_SchemeCaseInsensitive(t *testing.T) {
	key := testRSAKey(t)
	src := stubKeys{set: KeySet{Keys: []JWK{jwkFromPublic(&key.PublicKey, "kid-1")}}}
	v := NewVerifier(src, testDomain, testAudience)

	raw := signToken(t, key, "kid-1", validClaims())
	_, err := v.Verify(context.Background(), "bearer "+raw)
	require.NoError(t, err)
}

func TestJWK_PublicKeyRejectsBadMaterial(t *testing.T) {
	k := JWK{Kid: "x", Kty: "RSA", Use: "sig", N: "%%%not-base64%%%", E: "AQAB"}
	_, err := k.PublicKey()
	require.Error(t, err)
}
