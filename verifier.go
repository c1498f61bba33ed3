package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Verifier checks credentials against the directory store. It is the single
// password comparison call site in the package; attempt accounting happens
// in the login flow (see Auther.Login), never here.
type Verifier struct {
	directory DirectoryStore
	logger    Logger
}

// NewCredentialVerifier will create a new Verifier
func NewCredentialVerifier(directory DirectoryStore) *Verifier {
	return &Verifier{
		directory: directory,
		logger:    defLogger{},
	}
}

func (v *Verifier) WithLogger(logger Logger) *Verifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

var _ CredentialVerifier = (*Verifier)(nil)

// VerifyCredentials resolves the account and compares the password. A
// missing account, an INACTIVE or BLOCKED status, and a bad password all
// surface as ErrAuthenticationFailed so responses never reveal whether the
// username exists. Only the attempt counter guard is distinguishable, and
// then only internally.
func (v *Verifier) VerifyCredentials(ctx context.Context, username, password string) (Identity, error) {
	if password == "" {
		return nil, ErrAuthenticationFailed
	}

	account, err := v.directory.FindActiveByUsername(ctx, username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// covers missing, INACTIVE, and BLOCKED alike
			return nil, ErrAuthenticationFailed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	account.EnsureDefaults()

	if account.Locked() {
		v.logger.Warn("account over attempt threshold", "username", username)
		return nil, ErrAccountBlocked
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if !goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
		}
		return nil, ErrAuthenticationFailed
	}

	return IdentityFromAccount(account), nil
}
