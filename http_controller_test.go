package auth_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arcwell/go-auth"
)

func newTestController(auther auth.Authenticator) *auth.AuthController {
	return auth.NewAuthController(auth.WithControllerAuther(auther))
}

func TestNewAuthController(t *testing.T) {
	t.Run("applies route defaults", func(t *testing.T) {
		controller := newTestController(&MockAuthenticator{})

		assert.Equal(t, "/login", controller.Routes.Login)
		assert.Equal(t, "/refresh-token", controller.Routes.Refresh)
		assert.Equal(t, "/logout", controller.Routes.Logout)
	})

	t.Run("panics without an authenticator", func(t *testing.T) {
		assert.Panics(t, func() {
			auth.NewAuthController()
		})
	})

	t.Run("derives routes from the configured login path", func(t *testing.T) {
		cfg := auth.NewSimpleConfig("secret")
		cfg.LoginPath = "/api/auth/login"

		controller := auth.NewAuthController(
			auth.WithControllerAuther(&MockAuthenticator{}),
			auth.WithControllerConfig(cfg),
		)

		assert.Equal(t, "/api/auth/login", controller.Routes.Login)
		assert.Equal(t, "/api/auth/login/refresh", controller.Routes.Refresh)
		assert.Equal(t, "/api/auth/login/logout", controller.Routes.Logout)
	})
}

func TestRoutesFromConfig(t *testing.T) {
	t.Run("nests refresh and logout under the login path", func(t *testing.T) {
		cfg := auth.NewSimpleConfig("secret")

		routes := auth.RoutesFromConfig(cfg)
		assert.Equal(t, "/login", routes.Login)
		assert.Equal(t, "/login/refresh", routes.Refresh)
		assert.Equal(t, "/login/logout", routes.Logout)
	})

	t.Run("trims a trailing slash", func(t *testing.T) {
		cfg := auth.NewSimpleConfig("secret")
		cfg.LoginPath = "/session/"

		routes := auth.RoutesFromConfig(cfg)
		assert.Equal(t, "/session", routes.Login)
		assert.Equal(t, "/session/refresh", routes.Refresh)
	})

	t.Run("nil config falls back to defaults", func(t *testing.T) {
		routes := auth.RoutesFromConfig(nil)
		assert.Equal(t, "/login", routes.Login)
	})
}

func TestLoginPost(t *testing.T) {
	t.Run("returns the pair in a success envelope", func(t *testing.T) {
		auther := &MockAuthenticator{}
		pair := &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}
		auther.On("Login", mock.Anything, "admin", "sup3r-secret").Return(pair, nil)

		controller := newTestController(auther)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.LoginRequest)
			payload.Username = "admin"
			payload.Password = "sup3r-secret"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))

		assert.Equal(t, auth.MessageLoginSuccess, envelope.Message)
		assert.Equal(t, "200", envelope.Code)
		assert.Equal(t, pair, envelope.Data)
		assert.False(t, envelope.Error)
		auther.AssertExpectations(t)
	})

	t.Run("bad body maps to 400", func(t *testing.T) {
		controller := newTestController(&MockAuthenticator{})

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Return(errors.New("unexpected end of JSON input"))

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		assert.Equal(t, "400", envelope.Code)
		assert.True(t, envelope.Error)
	})

	t.Run("missing password maps to 400", func(t *testing.T) {
		controller := newTestController(&MockAuthenticator{})

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.LoginRequest)
			payload.Username = "admin"
		}).Return(nil)

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		assert.Equal(t, "400", envelope.Code)
	})

	t.Run("authentication failures map to 401", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("Login", mock.Anything, "admin", "wrong").Return(nil, auth.ErrAuthenticationFailed)

		controller := newTestController(auther)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.LoginRequest)
			payload.Username = "admin"
			payload.Password = "wrong"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		assert.Equal(t, "401", envelope.Code)
		assert.Equal(t, "invalid username or password", envelope.Message)
	})

	t.Run("internal errors are masked as 500", func(t *testing.T) {
		auther := &MockAuthenticator{}
		failure := goerrors.Wrap(errors.New("pq: connection refused"), goerrors.CategoryInternal, "lookup failed")
		auther.On("Login", mock.Anything, "admin", "sup3r-secret").Return(nil, failure)

		controller := newTestController(auther)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.LoginRequest)
			payload.Username = "admin"
			payload.Password = "sup3r-secret"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusInternalServerError, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.LoginPost(ctx))
		assert.Equal(t, "500", envelope.Code)
		assert.NotContains(t, envelope.Message, "connection refused")
	})
}

func TestRefreshPost(t *testing.T) {
	t.Run("returns the refreshed pair", func(t *testing.T) {
		auther := &MockAuthenticator{}
		pair := &auth.TokenPair{AccessToken: "fresh-access", RefreshToken: "same-refresh"}
		auther.On("Refresh", mock.Anything, "same-refresh").Return(pair, nil)

		controller := newTestController(auther)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.RefreshRequest)
			payload.RefreshToken = "same-refresh"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.RefreshPost(ctx))
		assert.Equal(t, auth.MessageRefreshSuccess, envelope.Message)
		assert.Equal(t, pair, envelope.Data)
	})

	t.Run("expired refresh token maps to 401", func(t *testing.T) {
		auther := &MockAuthenticator{}
		auther.On("Refresh", mock.Anything, "stale").Return(nil, auth.ErrRefreshTokenExpired)

		controller := newTestController(auther)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*auth.RefreshRequest)
			payload.RefreshToken = "stale"
		}).Return(nil)
		ctx.On("Context").Return(context.Background())

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.RefreshPost(ctx))
		assert.Equal(t, "401", envelope.Code)
		assert.Contains(t, envelope.Message, "login again")
	})

	t.Run("missing token maps to 400", func(t *testing.T) {
		controller := newTestController(&MockAuthenticator{})

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Return(nil)

		var envelope auth.Envelope
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			envelope = args.Get(1).(auth.Envelope)
		}).Return(nil)

		require.NoError(t, controller.RefreshPost(ctx))
		assert.Equal(t, "400", envelope.Code)
	})
}

func TestLogoutPost(t *testing.T) {
	auther := &MockAuthenticator{}
	auther.On("Logout", mock.Anything, "refresh-token").Return(nil)

	controller := newTestController(auther)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*auth.RefreshRequest)
		payload.RefreshToken = "refresh-token"
	}).Return(nil)
	ctx.On("Context").Return(context.Background())

	var envelope auth.Envelope
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		envelope = args.Get(1).(auth.Envelope)
	}).Return(nil)

	require.NoError(t, controller.LogoutPost(ctx))
	assert.Equal(t, auth.MessageLogoutSuccess, envelope.Message)
	assert.Equal(t, struct{}{}, envelope.Data)
	auther.AssertExpectations(t)
}
