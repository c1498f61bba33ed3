// Package authware provides the request guard that verifies bearer tokens
// and exposes their claims to downstream handlers.
package authware

import (
	"context"
	"strings"

	"github.com/goliatone/go-router"

	auth "github.com/arcwell/go-auth"
)

// TokenVerifier mirrors the token service contract without importing the
// concrete implementation, avoiding import cycles in consumers that embed
// this middleware next to their own auth wiring.
type TokenVerifier interface {
	Verify(token string) (*auth.AccessClaims, error)
	IsValidToken(ctx context.Context, token string) bool
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(router.Context) bool
	// HeaderName is the request header carrying the token, default Authorization
	HeaderName string
	// AuthScheme is the expected token prefix, default Bearer
	AuthScheme string
	// ContextKey is the locals key the claims are stored under, default claims
	ContextKey string
	// Verifier is required
	Verifier TokenVerifier
	// ErrorHandler runs when a presented token fails verification
	ErrorHandler func(router.Context, error) error
	// SuccessHandler runs after claims are attached, default continues the chain
	SuccessHandler router.HandlerFunc
}

// ConfigFrom maps the auth configuration onto the middleware settings.
// The Verifier is left for the caller to set.
func ConfigFrom(cfg auth.Config) Config {
	if cfg == nil {
		return Config{}
	}

	return Config{
		HeaderName: cfg.GetTokenHeaderName(),
		AuthScheme: strings.TrimSpace(cfg.GetTokenPrefix()),
		ContextKey: cfg.GetContextKey(),
	}
}

// New builds the guard handler. Requests without a token pass through
// unauthenticated so that route-level checks decide what is protected;
// requests that DO present a token must present a valid one.
func New(config ...Config) router.HandlerFunc {
	cfg := getDefaultConfig(config...)

	return func(ctx router.Context) error {
		if cfg.Filter != nil && cfg.Filter(ctx) {
			return ctx.Next()
		}

		header := ctx.GetString(cfg.HeaderName, "")
		token, ok := extractToken(header, cfg.AuthScheme)
		if !ok {
			return ctx.Next()
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			return cfg.ErrorHandler(ctx, err)
		}

		if !cfg.Verifier.IsValidToken(ctx.Context(), token) {
			return cfg.ErrorHandler(ctx, auth.ErrTokenInvalid)
		}

		ctx.Locals(cfg.ContextKey, claims)
		ctx.SetContext(auth.WithClaimsContext(ctx.Context(), claims))

		return cfg.SuccessHandler(ctx)
	}
}

// RequireAuthority wraps a handler so it only runs when the request claims
// carry one of the given authorities. Requests with no claims at all are
// rejected too, making routes behind it effectively protected.
func RequireAuthority(cfg Config, handler router.HandlerFunc, authorities ...string) router.HandlerFunc {
	guard := getDefaultConfig(cfg)

	return func(ctx router.Context) error {
		claims, ok := auth.GetRouterClaims(ctx, guard.ContextKey)
		if !ok {
			return guard.ErrorHandler(ctx, auth.ErrTokenInvalid)
		}

		if !claims.HasAnyAuthority(authorities...) {
			return guard.ErrorHandler(ctx, auth.ErrAuthenticationFailed)
		}

		return handler(ctx)
	}
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = "Authorization"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "claims"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.JSON(router.StatusUnauthorized, auth.EnvelopeFromError(err))
		}
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	return cfg
}

func extractToken(header, authScheme string) (string, bool) {
	if header == "" {
		return "", false
	}

	scheme := strings.TrimSpace(authScheme)
	if scheme == "" {
		return "", false
	}

	l := len(scheme)
	if len(header) <= l+1 || !strings.EqualFold(header[:l], scheme) {
		return "", false
	}

	token := strings.TrimSpace(header[l:])
	if token == "" {
		return "", false
	}

	return token, true
}
