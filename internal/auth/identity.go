package auth

import (
	"context"
	"time"
)

// Identity is the caller established from a validated token.
type Identity struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// HasRole reports whether the identity has the role.
func (i *Identity) HasRole(role string) bool {
	return i != nil && i.Role == role
}

type identityKey struct{}

// ContextWithIdentity returns a context carrying the identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
