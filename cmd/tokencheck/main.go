package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/itemlabs/go-items-api/internal/auth"
)

// tokencheck verifies a raw access token against the tenant's key set and
// prints the claims. Handy when debugging 401s from the API.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: tokencheck <jwt>")
		os.Exit(2)
	}
	domain := os.Getenv("AUTH0_DOMAIN")
	audience := os.Getenv("AUTH0_API_AUDIENCE")
	if domain == "" || audience == "" {
		fmt.Fprintln(os.Stderr, "AUTH0_DOMAIN and AUTH0_API_AUDIENCE must be set")
		os.Exit(2)
	}

	keys := auth.NewKeysetCache(domain)
	v := auth.NewVerifier(keys, domain, audience)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	claims, err := v.Verify(ctx, "Bearer "+os.Args[1])
	if err != nil {
		var ae *auth.AuthError
		if errors.As(err, &ae) {
			fmt.Fprintf(os.Stderr, "denied (%s): %v\n", ae.Reason, err)
		} else {
			fmt.Fprintf(os.Stderr, "denied: %v\n", err)
		}
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(claims)
}
