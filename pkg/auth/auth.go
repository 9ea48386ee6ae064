// Package auth is the boundary to the delegated identity provider. The
// delegation protocol itself is opaque to this module: a login flow yields a
// scoped delegation token, and everything else is derived from that token.
package auth

import (
	"context"
	"errors"
	"time"
)

// ErrProvider reports that the delegation flow failed or was abandoned.
// Session state is left unchanged when it occurs.
var ErrProvider = errors.New("identity provider error")

// Identity is an authenticated principal together with the delegation token
// that proves it. A nil *Identity means anonymous.
type Identity struct {
	// Principal is the textual principal the provider delegated for.
	Principal string
	// Token is the opaque delegation token presented to the service.
	Token string
	// ExpiresAt is when the delegation lapses. Zero means no expiry is known.
	ExpiresAt time.Time
}

// Expired reports whether the delegation has lapsed.
func (id *Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// LoginOptions parameterize a single login attempt.
type LoginOptions struct {
	// ProviderURL is the literal identity-provider URL for the target
	// deployment.
	ProviderURL string
}

// Client is the identity-provider handle. Implementations must not be
// assumed to complete synchronously; every method takes a context.
//
// Login resolves exactly once per call: with the new identity on the
// provider's success callback, or with an error wrapping ErrProvider if the
// flow failed or was abandoned.
type Client interface {
	Login(ctx context.Context, opts LoginOptions) (*Identity, error)
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	Identity(ctx context.Context) *Identity
}
