package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the username
func (r LoginRequest) GetIdentifier() string {
	return r.Username
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(1, 100),
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refreshToken" json:"refreshToken"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.RefreshToken,
			validation.Required,
		),
	)
}

type AuthControllerRoutes struct {
	Login   string
	Refresh string
	Logout  string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Auther Authenticator
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithControllerConfig derives the route paths from the configured login
// path, nesting refresh and logout under it.
func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if cfg != nil {
			routes := RoutesFromConfig(cfg)
			c.Routes = &routes
		}
		return c
	}
}

// RoutesFromConfig maps the configured login path onto the controller
// routes: <loginPath>, <loginPath>/refresh, <loginPath>/logout.
func RoutesFromConfig(cfg Config) AuthControllerRoutes {
	base := "/login"
	if cfg != nil && cfg.GetLoginPath() != "" {
		base = strings.TrimSuffix(cfg.GetLoginPath(), "/")
	}

	return AuthControllerRoutes{
		Login:   base,
		Refresh: base + "/refresh",
		Logout:  base + "/logout",
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:   "/login",
			Refresh: "/refresh-token",
			Logout:  "/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.
		Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")

	app.
		Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")
}

// LoginPost exchanges credentials for a token pair. Authentication
// failures of any flavor come back as a 401 envelope so callers cannot
// probe which accounts exist.
func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, FailureEnvelope(MessageInvalidRequest, CodeInvalidRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, FailureEnvelope(err.Error(), CodeInvalidRequest))
	}

	if a.Debug {
		a.Logger.Debug("login payload", "payload", print.MaybePrettyJSON(payload))
	}

	pair, err := a.Auther.Login(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return a.writeAuthError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, SuccessEnvelope(MessageLoginSuccess, CodeSuccess, pair))
}

// RefreshPost exchanges a live refresh token for a fresh access token.
func (a *AuthController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("refresh parse payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, FailureEnvelope(MessageInvalidRequest, CodeInvalidRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, FailureEnvelope(err.Error(), CodeInvalidRequest))
	}

	pair, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return a.writeAuthError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, SuccessEnvelope(MessageRefreshSuccess, CodeSuccess, pair))
}

// LogoutPost revokes the persisted refresh token.
func (a *AuthController) LogoutPost(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("logout parse payload", "error", err)
		return ctx.JSON(router.StatusBadRequest, FailureEnvelope(MessageInvalidRequest, CodeInvalidRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, FailureEnvelope(err.Error(), CodeInvalidRequest))
	}

	if err := a.Auther.Logout(ctx.Context(), payload.RefreshToken); err != nil {
		return a.writeAuthError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, SuccessEnvelope(MessageLogoutSuccess, CodeSuccess, nil))
}

func (a *AuthController) writeAuthError(ctx router.Context, err error) error {
	if IsAuthenticationError(err) {
		return ctx.JSON(router.StatusUnauthorized, EnvelopeFromError(err))
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryInternal {
		a.Logger.Error("auth internal error", "error", err, "details", print.MaybePrettyJSON(richErr.Metadata))
		return ctx.JSON(router.StatusInternalServerError, FailureEnvelope(MessageInternalError, CodeInternalError))
	}

	a.Logger.Warn("auth request rejected", "error", err)
	return ctx.JSON(router.StatusUnauthorized, FailureEnvelope(MessageUnauthorized, CodeUnauthorized))
}
