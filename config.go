package auth

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SimpleConfig is a plain struct implementation of Config.
type SimpleConfig struct {
	SigningSecret   string
	TokenHeaderName string
	TokenPrefix     string
	LoginPath       string
	ContextKey      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

var _ Config = (*SimpleConfig)(nil)

// NewSimpleConfig returns a config with defaults applied for everything
// but the signing secret.
func NewSimpleConfig(signingSecret string) *SimpleConfig {
	cfg := &SimpleConfig{SigningSecret: signingSecret}
	cfg.EnsureDefaults()
	return cfg
}

// NewConfigFromEnv loads an optional .env file and builds the config from
// the environment. AUTH_SIGNING_SECRET is the only required variable.
func NewConfigFromEnv() *SimpleConfig {
	godotenv.Load()

	cfg := &SimpleConfig{
		SigningSecret:   os.Getenv("AUTH_SIGNING_SECRET"),
		TokenHeaderName: os.Getenv("AUTH_TOKEN_HEADER"),
		TokenPrefix:     os.Getenv("AUTH_TOKEN_PREFIX"),
		LoginPath:       os.Getenv("AUTH_LOGIN_PATH"),
		ContextKey:      os.Getenv("AUTH_CONTEXT_KEY"),
		AccessTokenTTL:  durationFromEnv("AUTH_ACCESS_TOKEN_TTL_SECONDS"),
		RefreshTokenTTL: durationFromEnv("AUTH_REFRESH_TOKEN_TTL_SECONDS"),
	}
	cfg.EnsureDefaults()

	return cfg
}

// EnsureDefaults fills in any zero valued field except the signing secret,
// which has no safe default.
func (c *SimpleConfig) EnsureDefaults() *SimpleConfig {
	if c.TokenHeaderName == "" {
		c.TokenHeaderName = "Authorization"
	}

	if c.TokenPrefix == "" {
		c.TokenPrefix = "Bearer "
	}

	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}

	if c.ContextKey == "" {
		c.ContextKey = "claims"
	}

	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}

	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}

	return c
}

func (c *SimpleConfig) GetSigningSecret() string          { return c.SigningSecret }
func (c *SimpleConfig) GetTokenHeaderName() string        { return c.TokenHeaderName }
func (c *SimpleConfig) GetTokenPrefix() string            { return c.TokenPrefix }
func (c *SimpleConfig) GetLoginPath() string              { return c.LoginPath }
func (c *SimpleConfig) GetContextKey() string             { return c.ContextKey }
func (c *SimpleConfig) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

func durationFromEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
