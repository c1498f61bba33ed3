package auth

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle status of an account
type AccountStatus = string

const (
	// AccountStatusActive accounts may authenticate
	AccountStatusActive AccountStatus = "ACTIVE"
	// AccountStatusBlocked is set once the failed attempt counter passes
	// the account threshold; only an admin reset leaves this state
	AccountStatusBlocked AccountStatus = "BLOCKED"
	// AccountStatusInactive is set by external admin action and is treated
	// the same as a missing account during authentication
	AccountStatusInactive AccountStatus = "INACTIVE"
)

// DefaultMaxAttempt is the failed login threshold applied when an account
// record carries none.
const DefaultMaxAttempt = 3

// Role is a named grant with its permission strings. Authority derivation
// uses the name only; permissions are carried for downstream authorization.
type Role struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// Account is the directory record this package authenticates against
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string        `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string        `bun:"password_hash,notnull" json:"-"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	Enabled       bool          `bun:"enabled" json:"enabled,omitempty"`
	LoginAttempt  int           `bun:"login_attempt" json:"login_attempt,omitempty"`
	MaxAttempt    int           `bun:"max_attempt" json:"max_attempt,omitempty"`
	Roles         []Role        `bun:"roles" json:"roles,omitempty"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the default status on records created before the
// column existed.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// EnsureDefaults normalizes status and the attempt threshold.
func (a *Account) EnsureDefaults() {
	a.EnsureStatus()
	if a.MaxAttempt <= 0 {
		a.MaxAttempt = DefaultMaxAttempt
	}
}

// Locked reports whether the attempt counter has passed the threshold.
// The invariant Status == BLOCKED whenever this is true is maintained by
// the lockout tracker's atomic update.
func (a *Account) Locked() bool {
	return a.LoginAttempt > a.MaxAttempt
}

// Authorities returns the account's role names deduplicated and sorted
// lexicographically so token claims are deterministic.
func (a *Account) Authorities() []string {
	seen := make(map[string]struct{}, len(a.Roles))
	out := make([]string, 0, len(a.Roles))

	for _, role := range a.Roles {
		if role.Name == "" {
			continue
		}
		if _, ok := seen[role.Name]; ok {
			continue
		}
		seen[role.Name] = struct{}{}
		out = append(out, role.Name)
	}

	sort.Strings(out)
	return out
}

// AddRole appends a role grant to the account
func (a *Account) AddRole(role Role) *Account {
	a.Roles = append(a.Roles, role)
	return a
}

// RefreshToken is the persisted refresh credential. The unique account_id
// column keeps the relationship 1:1 even under concurrent logins.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Token         string     `bun:"token,notnull" json:"token,omitempty"`
	ExpiryDate    time.Time  `bun:"expiry_date,notnull" json:"expiry_date,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the record is past its expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiryDate.Before(now)
}
