package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	keysetTTL    = time.Hour
	fetchTimeout = 10 * time.Second
)

var (
	// ErrFetch covers transport failures and non-2xx answers from the
	// provider. Maps to 503 at the HTTP boundary.
	ErrFetch = errors.New("keyset fetch failed")
	// ErrMalformed covers structural violations in an otherwise delivered
	// body. Maps to 401, not 503.
	ErrMalformed = errors.New("malformed keyset")
)

// JWK is one published RSA signing key. Modulus and exponent stay opaque
// base64url strings until a verification actually needs them.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type KeySet struct {
	Keys []JWK `json:"keys"`
}

// KeysetCache holds the last fetched key set for the process lifetime.
// The set is replaced wholesale on refresh, never mutated in place; two
// requests racing on an expired cache may both fetch, last writer wins.
type KeysetCache struct {
	url    string
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	cached    []JWK
	expiresAt time.Time
}

func NewKeysetCache(domain string) *KeysetCache {
	return &KeysetCache{
		url:    "https://" + domain + "/.well-known/jwks.json",
		client: &http.Client{Timeout: fetchTimeout},
		ttl:    keysetTTL,
		now:    time.Now,
	}
}

// Get returns the cached key set while it is fresh, otherwise refreshes it
// from the provider.
func (c *KeysetCache) Get(ctx context.Context) (KeySet, error) {
	c.mu.RLock()
	if c.cached != nil && c.now().Before(c.expiresAt) {
		ks := KeySet{Keys: append([]JWK(nil), c.cached...)}
		c.mu.RUnlock()
		return ks, nil
	}
	c.mu.RUnlock()

	keys, err := c.fetch(ctx)
	if err != nil {
		return KeySet{}, err
	}

	c.mu.Lock()
	c.cached = keys
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()

	return KeySet{Keys: append([]JWK(nil), keys...)}, nil
}

func (c *KeysetCache) fetch(ctx context.Context) ([]JWK, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return parseKeyset(body)
}

var requiredJWKFields = []string{"kid", "kty", "use", "n", "e"}

// parseKeyset applies the strict schema: the body is an object, "keys" is an
// array, every entry is an object carrying all required fields as strings.
// One bad entry invalidates the whole set rather than being skipped.
func parseKeyset(body []byte) ([]JWK, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformed)
	}
	rawKeys, ok := doc["keys"]
	if !ok {
		return nil, fmt.Errorf("%w: missing keys field", ErrMalformed)
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(rawKeys, &entries); err != nil {
		return nil, fmt.Errorf("%w: keys is not an array of objects", ErrMalformed)
	}

	out := make([]JWK, 0, len(entries))
	for i, entry := range entries {
		fields := map[string]string{}
		for _, f := range requiredJWKFields {
			raw, ok := entry[f]
			if !ok {
				return nil, fmt.Errorf("%w: key %d missing field %q", ErrMalformed, i, f)
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("%w: key %d field %q is not a string", ErrMalformed, i, f)
			}
			fields[f] = s
		}
		out = append(out, JWK{
			Kid: fields["kid"], Kty: fields["kty"], Use: fields["use"],
			N: fields["n"], E: fields["e"],
		})
	}
	return out, nil
}
