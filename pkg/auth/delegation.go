package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityFromToken derives an Identity from a delegation token. The token is
// a JWT issued by the provider; its signature is verified by the service, not
// here — the client only reads the subject and expiry claims to know who the
// delegation is for and when it lapses.
func IdentityFromToken(token string) (*Identity, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("malformed delegation token: %w", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("delegation token has no subject: %w", err)
	}

	id := &Identity{
		Principal: sub,
		Token:     token,
	}

	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}

	return id, nil
}

// ValidIdentityFromToken is IdentityFromToken plus an expiry check. An
// expired delegation yields (nil, nil): the normal anonymous outcome on
// restore, not an error.
func ValidIdentityFromToken(token string, now time.Time) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	id, err := IdentityFromToken(token)
	if err != nil {
		return nil, err
	}
	if id.Expired(now) {
		return nil, nil
	}
	return id, nil
}
