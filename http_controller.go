package account

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFHeaderName = "X-CSRFToken"
)

const (
	msgRegistered          = "Registration successful. Please check your email to activate your account."
	msgActivated           = "Account activated successfully."
	msgAlreadyActive       = "Account is already activated."
	msgLoggedIn            = "Logged in successfully."
	msgLoggedOut           = "Logged out successfully."
	msgPasswordChanged     = "Password changed successfully."
	msgResetEmailSent      = "Password reset email sent successfully."
	msgPasswordResetDone   = "Password reset successful."
	msgCSRFCookieSet       = "CSRF cookie set"
	msgCSRFFailed          = "CSRF Failed: CSRF token missing or incorrect."
	msgInvalidRequestBody  = "Invalid request body."
	msgUnknownProfileRoute = "unknown profile route"
)

// DetailResponse is the body of every message-only success response
type DetailResponse struct {
	Detail string `json:"detail"`
}

type AccountControllerRoutes struct {
	CSRFToken            string
	CheckAuthenticated   string
	Register             string
	ActivateLink         string
	ActivateConfirm      string
	Login                string
	Logout               string
	UserDetail           string
	ChangePassword       string
	DeleteAccount        string
	ResetPasswordEmail   string
	ResetPasswordLink    string
	ResetPasswordConfirm string
	Profile              string
}

// AccountController maps the JSON API onto the lifecycle handlers
type AccountController struct {
	Debug        bool
	Logger       Logger
	Config       Config
	Lifecycle    *Lifecycle
	Sessions     *SessionManager
	Routes       *AccountControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLifecycle(lc *Lifecycle) AccountControllerOption {
	return func(a *AccountController) *AccountController {
		a.Lifecycle = lc
		return a
	}
}

func WithControllerSessions(m *SessionManager) AccountControllerOption {
	return func(a *AccountController) *AccountController {
		a.Sessions = m
		return a
	}
}

func WithControllerConfig(cfg Config) AccountControllerOption {
	return func(a *AccountController) *AccountController {
		a.Config = cfg
		return a
	}
}

func WithControllerLogger(l Logger) AccountControllerOption {
	return func(a *AccountController) *AccountController {
		a.Logger = normalizeLogger(l)
		a.ErrorHandler = RouteErrorHandler(a.Logger)
		return a
	}
}

// WithControllerDebug dumps created records to the logger
func WithControllerDebug(debug bool) AccountControllerOption {
	return func(a *AccountController) *AccountController {
		a.Debug = debug
		return a
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:       defLogger{},
		ErrorHandler: RouteErrorHandler(defLogger{}),
		Routes: &AccountControllerRoutes{
			CSRFToken:            "/get-csrf-token",
			CheckAuthenticated:   "/check-authenticated",
			Register:             "/register",
			ActivateLink:         "/activate/:uid/:token",
			ActivateConfirm:      "/activate/confirm",
			Login:                "/login",
			Logout:               "/logout",
			UserDetail:           "/user-detail",
			ChangePassword:       "/change-password",
			DeleteAccount:        "/delete-account",
			ResetPasswordEmail:   "/reset-password-email",
			ResetPasswordLink:    "/reset-password/:uid/:token",
			ResetPasswordConfirm: "/reset-password/confirm",
			Profile:              "/profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Lifecycle == nil {
		panic("Missing Lifecycle in account controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in account controller...")
	}

	if c.Config == nil {
		c.Config = c.Lifecycle.cfg
	}

	return c
}

// RegisterAccountRoutes builds an AccountController and mounts every
// endpoint under the configured prefix. CSRF checks run on the fiber app,
// see FiberAppOption.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) *AccountController {
	a := NewAccountController(opts...)
	api := app.Group(a.Config.GetRoutePrefix())

	protected := a.Sessions.ProtectedWith(a.ErrorHandler)

	api.Get(a.Routes.CSRFToken, a.CSRFToken).SetName("csrf-token.get")
	api.Get(a.Routes.CheckAuthenticated, a.CheckAuthenticated).SetName("check-authenticated.get")

	api.Post(a.Routes.Register, a.Register).SetName("register.post")
	api.Post(a.Routes.ActivateConfirm, a.ActivateConfirm).SetName("activate.post")
	api.Get(a.Routes.ActivateLink, a.ActivateLink).SetName("activate.get")

	api.Post(a.Routes.Login, a.Login).SetName("login.post")
	api.Post(a.Routes.Logout, a.Logout).SetName("logout.post")

	api.Get(a.Routes.UserDetail, a.UserDetail, protected).SetName("user-detail.get")
	api.Patch(a.Routes.UserDetail, a.UpdateUserDetail, protected).SetName("user-detail.patch")
	api.Post(a.Routes.ChangePassword, a.ChangePassword, protected).SetName("change-password.post")
	api.Delete(a.Routes.DeleteAccount, a.DeleteAccount, protected).SetName("delete-account.delete")

	api.Post(a.Routes.ResetPasswordEmail, a.ResetPasswordEmail).SetName("reset-password-email.post")
	api.Post(a.Routes.ResetPasswordConfirm, a.ResetPasswordConfirm).SetName("reset-password.post")
	api.Get(a.Routes.ResetPasswordLink, a.ResetPasswordLink).SetName("reset-password.get")

	api.Get(a.Routes.Profile, a.ProfileGet, protected).SetName("profile.get")
	api.Post(a.Routes.Profile, a.ProfileSave(ProfileCreate), protected).SetName("profile.post")
	api.Put(a.Routes.Profile, a.ProfileSave(ProfileReplace), protected).SetName("profile.put")
	api.Delete(a.Routes.Profile, a.ProfileDelete, protected).SetName("profile.delete")

	return a
}

// FiberAppOption configures the fiber app behind router.NewFiberAdapter:
// JSON error bodies for errors escaping the router, the given middleware
// and, when enabled, the CSRF check in front of the API prefix.
func FiberAppOption(cfg Config, logger Logger, middleware ...fiber.Handler) func(*fiber.App) *fiber.App {
	logger = normalizeLogger(logger)
	return func(_ *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:       "accountd",
			UnescapePath:  true,
			StrictRouting: false,
			ErrorHandler:  ErrorHandler(logger),
		})
		for _, mw := range middleware {
			app.Use(mw)
		}
		if cfg.GetCSRFEnabled() {
			app.Use(cfg.GetRoutePrefix(), CSRFMiddleware(cfg, logger))
		}
		return app
	}
}

// CSRFMiddleware checks the X-CSRFToken header against the csrftoken
// cookie on unsafe methods
func CSRFMiddleware(cfg Config, logger Logger) fiber.Handler {
	logger = normalizeLogger(logger)
	return csrf.New(csrf.Config{
		KeyLookup:      "header:" + CSRFHeaderName,
		CookieName:     CSRFCookieName,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.GetSessionSecure(),
		Expiration:     365 * 24 * time.Hour,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Warn("csrf check failed for %s %s: %v", c.Method(), c.Path(), err)
			return c.Status(fiber.StatusForbidden).JSON(DetailResponse{Detail: msgCSRFFailed})
		},
	})
}

func (a *AccountController) fail(c router.Context, err error) error {
	return a.ErrorHandler(c, err)
}

func (a *AccountController) detail(c router.Context, status int, msg string) error {
	return c.JSON(status, DetailResponse{Detail: msg})
}

func (a *AccountController) bind(c router.Context, payload any) error {
	if len(c.Body()) == 0 {
		return nil
	}

	if err := c.Bind(payload); err != nil {
		a.Logger.Debug("failed to parse %s body: %v", c.Path(), err)
		return goerrors.New(msgInvalidRequestBody, goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	return nil
}

func (a *AccountController) account(c router.Context) (*Account, error) {
	acc, ok := CurrentAccount(c)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return acc, nil
}

func (a *AccountController) CSRFToken(c router.Context) error {
	return c.JSON(fiber.StatusOK, fiber.Map{"success": msgCSRFCookieSet})
}

func (a *AccountController) CheckAuthenticated(c router.Context) error {
	return c.JSON(fiber.StatusOK, fiber.Map{"isAuthenticated": a.Sessions.IsAuthenticated(c)})
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

func (a *AccountController) Register(c router.Context) error {
	payload := new(RegisterRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	var res *RegisterAccountResponse
	msg := RegisterAccountMessage{
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		OnResponse: func(resp *RegisterAccountResponse) {
			res = resp
		},
	}

	if err := NewRegisterAccountHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
		return a.fail(c, err)
	}

	if a.Debug && res != nil {
		a.Logger.Debug("registered account:\n%s", print.MaybePrettyJSON(res.Account))
	}

	return a.detail(c, fiber.StatusCreated, msgRegistered)
}

// ActivateRequest carries the activation link parts
type ActivateRequest struct {
	UID   string `json:"uid" form:"uid"`
	Token string `json:"token" form:"token"`
}

func (a *AccountController) ActivateLink(c router.Context) error {
	return a.activate(c, ActivateRequest{UID: c.Param("uid"), Token: c.Param("token")})
}

func (a *AccountController) ActivateConfirm(c router.Context) error {
	payload := new(ActivateRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}
	return a.activate(c, *payload)
}

func (a *AccountController) activate(c router.Context, payload ActivateRequest) error {
	var res *ActivateAccountResponse
	msg := ActivateAccountMessage{
		UID:   payload.UID,
		Token: payload.Token,
		OnResponse: func(resp *ActivateAccountResponse) {
			res = resp
		},
	}

	if err := NewActivateAccountHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
		return a.fail(c, err)
	}

	if res != nil && res.AlreadyActive {
		return a.detail(c, fiber.StatusOK, msgAlreadyActive)
	}

	return a.detail(c, fiber.StatusOK, msgActivated)
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (a *AccountController) Login(c router.Context) error {
	payload := new(LoginRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	if _, err := a.Sessions.Login(c, payload.Email, payload.Password); err != nil {
		return a.fail(c, err)
	}

	return a.detail(c, fiber.StatusOK, msgLoggedIn)
}

func (a *AccountController) Logout(c router.Context) error {
	a.Sessions.Logout(c)
	return a.detail(c, fiber.StatusOK, msgLoggedOut)
}

func (a *AccountController) UserDetail(c router.Context) error {
	acc, err := a.account(c)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.StatusOK, acc)
}

// UpdateUserDetailRequest is the partial account update payload
type UpdateUserDetailRequest struct {
	Email *string `json:"email" form:"email"`
}

func (a *AccountController) UpdateUserDetail(c router.Context) error {
	acc, err := a.account(c)
	if err != nil {
		return a.fail(c, err)
	}

	payload := new(UpdateUserDetailRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	updated := acc
	msg := UpdateAccountMessage{
		AccountID: acc.ID,
		Email:     payload.Email,
		OnResponse: func(res *Account) {
			updated = res
		},
	}

	if err := NewUpdateAccountHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.StatusOK, updated)
}

// ChangePasswordRequest is the change password payload
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" form:"old_password"`
	NewPassword string `json:"new_password" form:"new_password"`
}

func (a *AccountController) ChangePassword(c router.Context) error {
	acc, err := a.account(c)
	if err != nil {
		return a.fail(c, err)
	}

	payload := new(ChangePasswordRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	msg := ChangePasswordMessage{
		AccountID:   acc.ID,
		OldPassword: payload.OldPassword,
		NewPassword: payload.NewPassword,
	}

	if err := NewChangePasswordHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
		return a.fail(c, err)
	}

	return a.detail(c, fiber.StatusOK, msgPasswordChanged)
}

func (a *AccountController) DeleteAccount(c router.Context) error {
	acc, err := a.account(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := NewDeleteAccountHandler(a.Lifecycle).Execute(c.Context(), DeleteAccountMessage{AccountID: acc.ID}); err != nil {
		return a.fail(c, err)
	}

	a.Sessions.ClearSession(c)
	return c.NoContent(fiber.StatusNoContent)
}

// ResetPasswordEmailRequest starts a password reset
type ResetPasswordEmailRequest struct {
	Email string `json:"email" form:"email"`
}

func (a *AccountController) ResetPasswordEmail(c router.Context) error {
	payload := new(ResetPasswordEmailRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	msg := RequestPasswordResetMessage{Email: payload.Email}
	if err := NewRequestPasswordResetHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
		return a.fail(c, err)
	}

	return a.detail(c, fiber.StatusOK, msgResetEmailSent)
}

// ResetPasswordLink validates the link a user followed from the email
func (a *AccountController) ResetPasswordLink(c router.Context) error {
	uid, token := c.Param("uid"), c.Param("token")
	if _, err := a.Lifecycle.CheckResetLink(c.Context(), uid, token); err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.StatusOK, fiber.Map{
		"valid": true,
		"uid":   uid,
		"token": token,
	})
}

// ResetPasswordConfirmRequest completes a password reset
type ResetPasswordConfirmRequest struct {
	UID         string `json:"uid" form:"uid"`
	Token       string `json:"token" form:"token"`
	NewPassword string `json:"new_password" form:"new_password"`
}

func (a *AccountController) ResetPasswordConfirm(c router.Context) error {
	payload := new(ResetPasswordConfirmRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	msg := ConfirmPasswordResetMessage{
		UID:         payload.UID,
		Token:       payload.Token,
		NewPassword: payload.NewPassword,
	}

	if err := NewConfirmPasswordResetHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
		return a.fail(c, err)
	}

	return a.detail(c, fiber.StatusOK, msgPasswordResetDone)
}

func (a *AccountController) ProfileGet(c router.Context) error {
	acc, err := a.account(c)
	if err != nil {
		return a.fail(c, err)
	}

	p, err := a.Lifecycle.GetProfile(c.Context(), acc.ID)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.StatusOK, p)
}

func (a *AccountController) ProfileSave(mode ProfileMode) router.HandlerFunc {
	status := fiber.StatusOK
	switch mode {
	case ProfileCreate:
		status = fiber.StatusCreated
	case ProfileReplace:
	default:
		panic(fmt.Sprintf("%s: %s", msgUnknownProfileRoute, mode))
	}

	return func(c router.Context) error {
		acc, err := a.account(c)
		if err != nil {
			return a.fail(c, err)
		}

		payload := new(ProfileFields)
		if err := a.bind(c, payload); err != nil {
			return a.fail(c, err)
		}

		var saved *Profile
		msg := SaveProfileMessage{
			AccountID: acc.ID,
			Mode:      mode,
			Fields:    *payload,
			OnResponse: func(p *Profile) {
				saved = p
			},
		}

		if err := NewSaveProfileHandler(a.Lifecycle).Execute(c.Context(), msg); err != nil {
			return a.fail(c, err)
		}

		return c.JSON(status, saved)
	}
}

func (a *AccountController) ProfileDelete(c router.Context) error {
	acc, err := a.account(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := NewDeleteProfileHandler(a.Lifecycle).Execute(c.Context(), DeleteProfileMessage{AccountID: acc.ID}); err != nil {
		return a.fail(c, err)
	}

	return c.NoContent(fiber.StatusNoContent)
}
