package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL bounds the access token validity window
	DefaultAccessTokenTTL = time.Hour
	// DefaultRefreshTokenTTL matches the 600000ms refresh window the wire
	// contract was built around
	DefaultRefreshTokenTTL = 10 * time.Minute
	// DefaultLookupTimeout bounds the directory lookup performed during
	// per request token revalidation
	DefaultLookupTimeout = 5 * time.Second
)

// RefreshTokenRecorder is the subset of the refresh token store the token
// service needs: issuing a refresh token always records it.
type RefreshTokenRecorder interface {
	Upsert(ctx context.Context, accountID uuid.UUID, token string, expiry time.Time) (*RefreshToken, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey    []byte
	tokenPrefix   string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	lookupTimeout time.Duration
	directory     DirectoryStore
	refreshTokens RefreshTokenRecorder
	logger        Logger
	now           func() time.Time
}

// TokenServiceOption customizes token service construction.
type TokenServiceOption func(*TokenServiceImpl)

// WithAccessTokenTTL overrides the access token validity window.
func WithAccessTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if ttl > 0 {
			ts.accessTTL = ttl
		}
	}
}

// WithRefreshTokenTTL overrides the refresh token validity window.
func WithRefreshTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if ttl > 0 {
			ts.refreshTTL = ttl
		}
	}
}

// WithLookupTimeout bounds the directory lookup in IsValidToken.
func WithLookupTimeout(timeout time.Duration) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if timeout > 0 {
			ts.lookupTimeout = timeout
		}
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenPrefix overrides the scheme prefix VerifyBearer strips from
// header values, default "Bearer ".
func WithTokenPrefix(prefix string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if prefix != "" {
			ts.tokenPrefix = prefix
		}
	}
}

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// NewTokenService creates a new TokenService instance. The directory is the
// revalidation dependency consulted on every IsValidToken call; pass a
// stateless stub to disable instant revocation in tests.
func NewTokenService(signingKey []byte, directory DirectoryStore, refreshTokens RefreshTokenRecorder, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey:    signingKey,
		tokenPrefix:   "Bearer ",
		accessTTL:     DefaultAccessTokenTTL,
		refreshTTL:    DefaultRefreshTokenTTL,
		lookupTimeout: DefaultLookupTimeout,
		directory:     directory,
		refreshTokens: refreshTokens,
		logger:        defLogger{},
		now:           time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

var _ TokenService = (*TokenServiceImpl)(nil)

// IssueAccessToken builds and signs a short lived access token carrying the
// identity's authority set. Access tokens are never persisted.
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
		Authorities: identity.Authorities(),
		Roles:       identity.RoleNames(),
		IsEnabled:   identity.IsEnabled(),
	}

	return ts.sign(claims)
}

// IssueRefreshToken builds, signs, and RECORDS a refresh token. The upsert
// is not optional: a caller can never hold a refresh token that is absent
// from the store, so a persistence failure fails issuance.
func (ts *TokenServiceImpl) IssueRefreshToken(ctx context.Context, identity Identity) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	accountID, err := uuid.Parse(identity.ID())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "identity has no parsable account id")
	}

	now := ts.now()
	expiry := now.Add(ts.refreshTTL)
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps back-to-back issuance distinct; iat/exp alone have
			// one second granularity, which would make rotation a no-op
			ID:        uuid.NewString(),
			Subject:   identity.Username(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token, err := ts.sign(claims)
	if err != nil {
		return "", err
	}

	if _, err := ts.refreshTokens.Upsert(ctx, accountID, token, expiry); err != nil {
		ts.logger.Error("failed to record refresh token", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record refresh token")
	}

	return token, nil
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Verify parses and validates a token string, returning structured claims.
// Failures map onto the token error taxonomy: expired, malformed,
// unsupported, or the generic invalid.
func (ts *TokenServiceImpl) Verify(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case goerrors.Is(err, jwt.ErrTokenMalformed), goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenMalformed
		case goerrors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenUnsupported
		default:
			return nil, ErrTokenInvalid
		}
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("verify could not decode claims")
	return nil, ErrTokenInvalid
}

// VerifyBearer accepts a raw header value, strips the configured scheme
// prefix when present, and runs both signature verification and the
// directory revalidation check.
func (ts *TokenServiceImpl) VerifyBearer(ctx context.Context, header string) (*AccessClaims, error) {
	token := strings.TrimSpace(strings.TrimPrefix(header, ts.tokenPrefix))

	claims, err := ts.Verify(token)
	if err != nil {
		return nil, err
	}

	if !ts.IsValidToken(ctx, token) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// IsValidToken re-resolves the token's subject through the directory store.
// A token issued while the account was active turns invalid the moment the
// account is deactivated or removed, even before its embedded expiry. The
// lookup is bounded by the configured timeout.
func (ts *TokenServiceImpl) IsValidToken(ctx context.Context, tokenString string) bool {
	claims, err := ts.Verify(tokenString)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, ts.lookupTimeout)
	defer cancel()

	account, err := ts.directory.FindActiveByUsername(ctx, claims.Username())
	if err != nil {
		return false
	}

	return account != nil
}
