package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func jwksBody(pub *rsa.PublicKey, kid string) string {
	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	return `{"keys":[{"kid":"` + kid + `","kty":"RSA","use":"sig","n":"` + n + `","e":"` + e + `"}]}`
}

func cacheFor(ts *httptest.Server, now func() time.Time) *KeysetCache {
	return &KeysetCache{
		url:    ts.URL,
		client: ts.Client(),
		ttl:    keysetTTL,
		now:    now,
	}
}

func TestKeysetCache_ServesCachedWithinTTL(t *testing.T) {
	key := testRSAKey(t)
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jwksBody(&key.PublicKey, "kid-1")))
	}))
	defer ts.Close()

	c := cacheFor(ts, time.Now)

	first, err := c.Get(context.Background())
	require.NoError(t, err)
	second, err := c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "second call within TTL must not refetch")
}

func TestKeysetCache_RefreshesAfterTTL(t *testing.T) {
	key := testRSAKey(t)
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(jwksBody(&key.PublicKey, "kid-1")))
	}))
	defer ts.Close()

	clock := time.Now()
	c := cacheFor(ts, func() time.Time { return clock })

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	clock = clock.Add(keysetTTL + time.Minute)
	_, err = c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load(), "expired cache must trigger exactly one refresh")
}

func TestKeysetCache_NonOKStatusIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := cacheFor(ts, time.Now)
	_, err := c.Get(context.Background())
	require.ErrorIs(t, err, ErrFetch)
}

func TestKeysetCache_TransportFailureIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // connection refused from here on

	c := cacheFor(ts, time.Now)
	_, err := c.Get(context.Background())
	require.ErrorIs(t, err, ErrFetch)
}

func TestParseKeyset_Malformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"body not an object", `[1,2,3]`},
		{"missing keys field", `{"kty":"RSA"}`},
		{"keys not an array", `{"keys":{"kid":"a"}}`},
		{"entry not an object", `{"keys":["x"]}`},
		{"entry missing n", `{"keys":[{"kid":"a","kty":"RSA","use":"sig","e":"AQAB"}]}`},
		{"entry missing kid", `{"keys":[{"kty":"RSA","use":"sig","n":"abc","e":"AQAB"}]}`},
		{"non-string field", `{"keys":[{"kid":1,"kty":"RSA","use":"sig","n":"abc","e":"AQAB"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseKeyset([]byte(tc.body))
			require.ErrorIs(t, err, ErrMalformed)
			assert.NotErrorIs(t, err, ErrFetch)
		})
	}
}

func TestParseKeyset_StrictFailsWholeSetOnOneBadEntry(t *testing.T) {
	body := `{"keys":[
		{"kid":"good","kty":"RSA","use":"sig","n":"abc","e":"AQAB"},
		{"kid":"bad","kty":"RSA","use":"sig","e":"AQAB"}
	]}`
	_, err := parseKeyset([]byte(body))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestKeysetCache_MalformedBodyNotCached(t *testing.T) {
	key := testRSAKey(t)
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"nokeys":true}`))
			return
		}
		_, _ = w.Write([]byte(jwksBody(&key.PublicKey, "kid-1")))
	}))
	defer ts.Close()

	c := cacheFor(ts, time.Now)

	_, err := c.Get(context.Background())
	require.ErrorIs(t, err, ErrMalformed)

	ks, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, ks.Keys, 1)
	assert.Equal(t, "kid-1", ks.Keys[0].Kid)
}
