package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	textCodeAccountBlocked       = "ACCOUNT_BLOCKED"
	textCodeTokenExpired         = "TOKEN_EXPIRED"
	textCodeTokenMalformed       = "TOKEN_MALFORMED"
	textCodeTokenUnsupported     = "TOKEN_UNSUPPORTED"
	textCodeTokenInvalid         = "TOKEN_INVALID"
	textCodeRefreshTokenExpired  = "REFRESH_TOKEN_EXPIRED"
	textCodeInvalidSigningKey    = "INVALID_SIGNING_KEY"
)

// ErrAuthenticationFailed covers bad credentials and missing or inactive
// accounts alike, so callers cannot probe for account existence.
var ErrAuthenticationFailed = goerrors.New("invalid username or password", goerrors.CategoryAuth).
	WithTextCode(textCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountBlocked is returned once the failed attempt counter passes the
// account's threshold. Recovery requires an administrative status reset.
var ErrAccountBlocked = goerrors.New("account is blocked", goerrors.CategoryAuth).
	WithTextCode(textCodeAccountBlocked).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when the embedded expiry has passed.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when the token structure or signature
// cannot be parsed.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenUnsupported is returned for an unrecognized signing algorithm or
// token type.
var ErrTokenUnsupported = goerrors.New("token is not supported", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenUnsupported).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is the catch-all for any other token verification failure.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshTokenExpired is returned when a persisted refresh token is past
// its expiry. The record is purged as a side effect of verification.
var ErrRefreshTokenExpired = goerrors.New("refresh token is expired, please login again", goerrors.CategoryAuth).
	WithTextCode(textCodeRefreshTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSigningKey is returned when the configured secret decodes to
// fewer than 256 bits.
var ErrInvalidSigningKey = goerrors.New("signing secret is below the minimum key length", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidSigningKey).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword mirrors the bcrypt mismatch without leaking
// which side was wrong.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithTextCode(textCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password input before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsAuthenticationError reports whether err belongs to the auth taxonomy,
// i.e. it should surface as a 401 envelope rather than a 500.
func IsAuthenticationError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	switch rich.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return true
	default:
		return false
	}
}
