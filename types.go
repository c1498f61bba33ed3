package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Username() string
	Authorities() []string
	RoleNames() []string
	IsEnabled() bool
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// TokenPair is the credential set returned by a successful login
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and verifies signed tokens
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(ctx context.Context, identity Identity) (string, error)
	Verify(token string) (*AccessClaims, error)
	VerifyBearer(ctx context.Context, header string) (*AccessClaims, error)
	IsValidToken(ctx context.Context, token string) bool
}

// CredentialVerifier checks a username/password pair against the directory
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (Identity, error)
}

// LockoutTracker owns the per account failed login counter. Both mutations
// run as single atomic statements so concurrent attempts never undercount.
type LockoutTracker interface {
	RecordLoginAttempt(ctx context.Context, username string) error
	ResetLoginAttempts(ctx context.Context, username string) error
}

// DirectoryStore is the account lookup contract this package consumes.
// Account CRUD itself lives with the surrounding service.
type DirectoryStore interface {
	FindActiveByUsername(ctx context.Context, username string) (*Account, error)
	FindByUsernameOrStatus(ctx context.Context, username string, status AccountStatus) ([]*Account, error)
	Save(ctx context.Context, account *Account) (*Account, error)
}

// Config holds auth options
type Config interface {
	GetSigningSecret() string
	GetTokenHeaderName() string
	GetTokenPrefix() string
	GetLoginPath() string
	GetContextKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type authIdentity struct {
	id          string
	username    string
	authorities []string
	roles       []string
	enabled     bool
}

func (a authIdentity) ID() string            { return a.id }
func (a authIdentity) Username() string      { return a.username }
func (a authIdentity) Authorities() []string { return a.authorities }
func (a authIdentity) RoleNames() []string   { return a.roles }
func (a authIdentity) IsEnabled() bool       { return a.enabled }

var _ Identity = authIdentity{}

// IdentityFromAccount projects an account into the read-only identity
// handed to the token service.
func IdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}

	id := ""
	if account.ID != uuid.Nil {
		id = account.ID.String()
	}

	return authIdentity{
		id:          id,
		username:    account.Username,
		authorities: account.Authorities(),
		roles:       account.Authorities(),
		enabled:     account.Enabled,
	}
}

type defLogger struct{}

func (d defLogger) Error(message string, args ...any) {
	fmt.Printf("[ERR] AUTH %s\n", message+kvString(args))
}

func (d defLogger) Warn(message string, args ...any) {
	fmt.Printf("[WRN] AUTH %s\n", message+kvString(args))
}

func (d defLogger) Info(message string, args ...any) {
	fmt.Printf("[INF] AUTH %s\n", message+kvString(args))
}

func (d defLogger) Debug(message string, args ...any) {
	fmt.Printf("[DBG] AUTH %s\n", message+kvString(args))
}

// kvString renders the structured key value pairs call sites append to the
// message, tolerating a trailing key without a value.
func kvString(args []any) string {
	if len(args) == 0 {
		return ""
	}

	out := ""
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out
}
