package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an issued access token
type AccessClaims struct {
	jwt.RegisteredClaims
	Authorities []string `json:"authorities,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	IsEnabled   bool     `json:"isEnabled"`
}

// Username returns the subject claim
func (c *AccessClaims) Username() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued at time
func (c *AccessClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// HasAuthority checks if the claims carry a specific authority
func (c *AccessClaims) HasAuthority(name string) bool {
	for _, a := range c.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

// HasAnyAuthority checks if the claims carry at least one of the given
// authorities. Zero arguments is true for any authenticated caller.
func (c *AccessClaims) HasAnyAuthority(names ...string) bool {
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if c.HasAuthority(name) {
			return true
		}
	}
	return false
}

// RefreshClaims is the payload of an issued refresh token, deliberately
// limited to the registered claim set.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Username returns the subject claim
func (c *RefreshClaims) Username() string {
	return c.RegisteredClaims.Subject
}
