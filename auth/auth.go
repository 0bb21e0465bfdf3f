// Package auth verifies bearer tokens on the HTTP surface.
//
// Information Hiding:
// - Token format and signature scheme hidden behind Verifier
// - Header parsing rules internalized
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Errors surfaced to the HTTP layer as 401 responses.
var (
	ErrMissingToken = errors.New("no authorization token provided")
	ErrBadHeader    = errors.New("invalid authorization header format")
	ErrInvalidToken = errors.New("invalid authorization token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
}

// Verifier validates a bearer token and resolves the caller identity.
// The production identity provider is an external collaborator; this
// contract keeps its verification opaque to the rest of the service.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header of the
// form "Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrBadHeader
	}
	return parts[1], nil
}
