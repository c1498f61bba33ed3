package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AccessClaims in the given context
func WithClaimsContext(r context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AccessClaims from the standard context
func GetClaims(ctx context.Context) (*AccessClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AccessClaims)
	return raw, ok
}

// GetRouterClaims extracts the AccessClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (*AccessClaims, bool) {
	if key == "" {
		key = "claims"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*AccessClaims)
	return claims, ok
}

// HasAuthority is a convenience check against the claims in the standard
// context.
func HasAuthority(ctx context.Context, name string) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	return claims.HasAuthority(name)
}
