// Package auth is the authentication-provider boundary: verifying tokens
// into identities, plus a local credential fallback for deployments without
// an external provider.
package auth

import (
	"context"
	"errors"
	"strings"
)

// Identity is the authenticated principal a token resolves to.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
}

var (
	// ErrInvalidToken is returned for tokens that do not verify.
	ErrInvalidToken = errors.New("invalid auth token")
	// ErrInvalidCredentials is returned on a failed local sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when signing up an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// AnonymousVerifier accepts any non-empty token and treats it as a local
// identity id (demo mode, matching the app's offline behavior). Real
// deployments configure the firebase verifier instead.
type AnonymousVerifier struct{}

func (AnonymousVerifier) Verify(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: token, DisplayName: token, Role: "student"}, nil
}
