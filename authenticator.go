package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Auther drives the authentication flows end to end
type Auther struct {
	verifier      CredentialVerifier
	lockout       LockoutTracker
	tokens        TokenService
	directory     DirectoryStore
	refreshTokens RefreshTokens
	logger        Logger
}

// NewAuthenticator wires the default collaborators on top of the given
// repositories. The signing key is derived, and validated, from the
// configured secret.
func NewAuthenticator(repo RepositoryManager, cfg Config) (*Auther, error) {
	signingKey, err := DeriveSigningKey(cfg.GetSigningSecret())
	if err != nil {
		return nil, err
	}

	accounts := repo.Accounts()
	refreshTokens := repo.RefreshTokens()

	tokens := NewTokenService(
		signingKey,
		accounts,
		refreshTokens,
		WithTokenPrefix(cfg.GetTokenPrefix()),
		WithAccessTokenTTL(cfg.GetAccessTokenTTL()),
		WithRefreshTokenTTL(cfg.GetRefreshTokenTTL()),
	)

	return &Auther{
		verifier:      NewCredentialVerifier(accounts),
		lockout:       accounts,
		tokens:        tokens,
		directory:     accounts,
		refreshTokens: refreshTokens,
		logger:        defLogger{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService sets a custom token service, e.g. one with a test clock.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithCredentialVerifier sets a custom credential verifier.
func (s *Auther) WithCredentialVerifier(verifier CredentialVerifier) *Auther {
	if verifier != nil {
		s.verifier = verifier
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

var _ Authenticator = (*Auther)(nil)

// Login records the attempt, verifies the credentials, and on success
// issues the token pair and resets the counter.
//
// The attempt is recorded optimistically BEFORE verification: this is the
// single accounting call site, and it is what locks an account whose
// counter sits at the threshold even when the submitted password is
// correct. Unknown usernames update zero rows, so the pre-record leaks
// nothing.
func (s *Auther) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if err := s.lockout.RecordLoginAttempt(ctx, username); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login attempt")
	}

	identity, err := s.verifier.VerifyCredentials(ctx, username, password)
	if err != nil {
		s.logger.Warn("login verification failed", "username", username, "error", err)
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		return nil, err
	}

	refreshToken, err := s.tokens.IssueRefreshToken(ctx, identity)
	if err != nil {
		s.logger.Error("failed to issue refresh token", "error", err)
		return nil, err
	}

	if err := s.lockout.ResetLoginAttempts(ctx, username); err != nil {
		// tokens are already issued; a stale counter self-corrects on the
		// next successful login
		s.logger.Warn("failed to reset login attempts", "username", username, "error", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a live persisted refresh token for a fresh access
// token. The refresh token itself is returned unchanged; an expired record
// is purged by the store during verification.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := s.refreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenInvalid
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token")
	}

	if err := s.refreshTokens.VerifyNotExpired(ctx, record); err != nil {
		s.logger.Warn("refresh token expired", "account_id", record.AccountID)
		return nil, err
	}

	if record.Account == nil {
		return nil, ErrTokenInvalid
	}

	account, err := s.directory.FindActiveByUsername(ctx, record.Account.Username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAuthenticationFailed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account during refresh")
	}

	accessToken, err := s.tokens.IssueAccessToken(IdentityFromAccount(account))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Logout deletes the persisted refresh token. Access tokens are stateless
// and simply age out; revalidation covers deactivated accounts.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokens.DeleteByToken(ctx, refreshToken); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh token")
	}
	return nil
}
