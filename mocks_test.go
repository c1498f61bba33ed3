package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/arcwell/go-auth"
	"github.com/goliatone/go-repository-bun"
)

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// TestIdentity implements auth.Identity
type TestIdentity struct {
	id          string
	username    string
	authorities []string
	roles       []string
	enabled     bool
}

func (t TestIdentity) ID() string            { return t.id }
func (t TestIdentity) Username() string      { return t.username }
func (t TestIdentity) Authorities() []string { return t.authorities }
func (t TestIdentity) RoleNames() []string   { return t.roles }
func (t TestIdentity) IsEnabled() bool       { return t.enabled }

// memDirectory is an in-memory auth.DirectoryStore keyed by username
type memDirectory struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
}

func newMemDirectory(accounts ...*auth.Account) *memDirectory {
	d := &memDirectory{accounts: map[string]*auth.Account{}}
	for _, account := range accounts {
		d.accounts[account.Username] = account
	}
	return d
}

func (d *memDirectory) FindActiveByUsername(ctx context.Context, username string) (*auth.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	account, ok := d.accounts[username]
	if !ok || account.Status != auth.AccountStatusActive {
		return nil, repository.NewRecordNotFound()
	}
	return account, nil
}

func (d *memDirectory) FindByUsernameOrStatus(ctx context.Context, username string, status auth.AccountStatus) ([]*auth.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := []*auth.Account{}
	for _, account := range d.accounts {
		if account.Username == username || account.Status == status {
			out = append(out, account)
		}
	}
	return out, nil
}

func (d *memDirectory) Save(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.accounts[account.Username] = account
	return account, nil
}

// recorderStub implements auth.RefreshTokenRecorder capturing upserts
type recorderStub struct {
	mu      sync.Mutex
	fail    error
	records []recordedUpsert
}

type recordedUpsert struct {
	AccountID uuid.UUID
	Token     string
	Expiry    time.Time
}

func (r *recorderStub) Upsert(ctx context.Context, accountID uuid.UUID, token string, expiry time.Time) (*auth.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return nil, r.fail
	}

	r.records = append(r.records, recordedUpsert{AccountID: accountID, Token: token, Expiry: expiry})

	return &auth.RefreshToken{
		ID:         uuid.New(),
		AccountID:  accountID,
		Token:      token,
		ExpiryDate: expiry,
	}, nil
}

func (r *recorderStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *recorderStub) last() recordedUpsert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[len(r.records)-1]
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	args := m.Called(ctx, username, password)
	if pair, ok := args.Get(0).(*auth.TokenPair); ok {
		return pair, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if pair, ok := args.Get(0).(*auth.TokenPair); ok {
		return pair, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}
