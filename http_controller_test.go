package account_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	account "github.com/goliatone/go-account"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpEnv struct {
	*testEnv
	app *fiber.App
}

func newHTTPEnv(t *testing.T, mutate ...func(*account.Options)) *httpEnv {
	t.Helper()

	env := newTestEnv(t, mutate...)

	srv := router.NewFiberAdapter(account.FiberAppOption(env.opts, account.NopLogger{}))

	sessions := account.NewSessionManager(account.NewAuthenticator(env.lc), env.opts).
		WithLogger(account.NopLogger{})

	account.RegisterAccountRoutes(srv.Router(),
		account.WithControllerLifecycle(env.lc),
		account.WithControllerSessions(sessions),
		account.WithControllerLogger(account.NopLogger{}),
	)

	return &httpEnv{testEnv: env, app: srv.WrappedRouter()}
}

func (h *httpEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/auth-api"+path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}

	return resp, out
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (h *httpEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	resp, body := h.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Logged in successfully.", body["detail"])

	cookie := findCookie(resp, account.DefaultSessionCookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
}

func TestHTTP_RegisterActivateLogin(t *testing.T) {
	h := newHTTPEnv(t)

	resp, body := h.do(t, http.MethodPost, "/register", map[string]string{
		"email":            testEmail,
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Registration successful. Please check your email to activate your account.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/register", map[string]string{
		"email":            testEmail,
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok, body)
	assert.Equal(t, "A user with this email already exists.", errs["email"])

	resp, body = h.do(t, http.MethodPost, "/login", map[string]string{"email": testEmail, "password": testPassword})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Account is not activated.", body["detail"])

	n := h.notifier.last()
	resp, body = h.do(t, http.MethodGet, "/activate/"+n.UID+"/"+n.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Account activated successfully.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/activate/confirm", map[string]string{"uid": n.UID, "token": n.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Account is already activated.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/activate/confirm", map[string]string{"uid": n.UID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing uid or token.", body["detail"])

	resp, body = h.do(t, http.MethodGet, "/activate/"+n.UID+"/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid activation link.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/login", map[string]string{"email": testEmail, "password": "nope-nope-nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email or Password is incorrect.", body["detail"])

	cookie := h.login(t, testEmail, testPassword)

	resp, body = h.do(t, http.MethodGet, "/check-authenticated", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isAuthenticated"])

	resp, body = h.do(t, http.MethodGet, "/user-detail", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testEmail, body["email"])
	assert.Equal(t, true, body["is_active"])
	assert.NotContains(t, body, "password_hash")

	resp, body = h.do(t, http.MethodPost, "/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out successfully.", body["detail"])
	_, ok = h.sink.find(account.ActivityEventLogout)
	assert.True(t, ok)
}

func TestHTTP_ProtectedRoutesRequireSession(t *testing.T) {
	h := newHTTPEnv(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/user-detail"},
		{http.MethodPatch, "/user-detail"},
		{http.MethodPost, "/change-password"},
		{http.MethodDelete, "/delete-account"},
		{http.MethodGet, "/profile"},
		{http.MethodPost, "/profile"},
		{http.MethodPut, "/profile"},
		{http.MethodDelete, "/profile"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp, body := h.do(t, r.method, r.path, nil)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "Authentication credentials were not provided.", body["detail"])
		})
	}

	resp, body := h.do(t, http.MethodGet, "/user-detail", nil, &http.Cookie{Name: account.DefaultSessionCookieName, Value: "junk"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Authentication credentials were not provided.", body["detail"])
}

func TestHTTP_AccountManagement(t *testing.T) {
	h := newHTTPEnv(t)
	h.activate(t, testEmail, testPassword)
	cookie := h.login(t, testEmail, testPassword)

	resp, body := h.do(t, http.MethodPatch, "/user-detail", map[string]string{"email": "renamed@example.com"}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "renamed@example.com", body["email"])

	resp, body = h.do(t, http.MethodPost, "/change-password", map[string]string{
		"old_password": "wrong-password",
		"new_password": testPassword2,
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid old password.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/change-password", map[string]string{
		"old_password": testPassword,
		"new_password": testPassword2,
	}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Password changed successfully.", body["detail"])

	cookie = h.login(t, "renamed@example.com", testPassword2)

	resp, _ = h.do(t, http.MethodDelete, "/delete-account", nil, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	cleared := findCookie(resp, account.DefaultSessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp, _ = h.do(t, http.MethodGet, "/user-detail", nil, cookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHTTP_Profile(t *testing.T) {
	h := newHTTPEnv(t)
	h.activate(t, testEmail, testPassword)
	cookie := h.login(t, testEmail, testPassword)

	resp, body := h.do(t, http.MethodGet, "/profile", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", body["mobile"])

	resp, body = h.do(t, http.MethodPost, "/profile", map[string]string{"bio": "hi"}, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Profile already exists.", body["detail"])

	resp, body = h.do(t, http.MethodPut, "/profile", map[string]string{"mobile": "98765432"}, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid mobile number format. Please enter a 10-digit number.", body["detail"])

	resp, body = h.do(t, http.MethodPut, "/profile", map[string]string{
		"mobile":   "9876543210",
		"location": "Pune",
		"gender":   "M",
	}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "+919876543210", body["mobile_e164"])
	assert.Equal(t, "M", body["gender"])

	resp, body = h.do(t, http.MethodDelete, "/profile", nil, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = h.do(t, http.MethodDelete, "/profile", nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Profile does not exist.", body["detail"])

	resp, body = h.do(t, http.MethodGet, "/profile", nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Profile does not exist.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/profile", map[string]string{"location": "Goa"}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Goa", body["location"])
}

func TestHTTP_PasswordReset(t *testing.T) {
	h := newHTTPEnv(t)
	h.activate(t, testEmail, testPassword)

	resp, body := h.do(t, http.MethodPost, "/reset-password-email", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User with this email does not exist.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/reset-password-email", map[string]string{"email": testEmail})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Password reset email sent successfully.", body["detail"])

	n := h.notifier.last()
	require.Equal(t, account.NotificationPasswordReset, n.Kind)

	resp, body = h.do(t, http.MethodGet, "/reset-password/"+n.UID+"/"+n.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, n.UID, body["uid"])

	confirm := map[string]string{"uid": n.UID, "token": n.Token, "new_password": testPassword2}
	resp, body = h.do(t, http.MethodPost, "/reset-password/confirm", confirm)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Password reset successful.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/reset-password/confirm", confirm)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid reset password link.", body["detail"])

	resp, _ = h.do(t, http.MethodGet, "/reset-password/"+n.UID+"/"+n.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	h.login(t, testEmail, testPassword2)
}

func TestHTTP_InvalidBody(t *testing.T) {
	h := newHTTPEnv(t)

	resp, body := h.do(t, http.MethodPost, "/login", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body.", body["detail"])

	resp, body = h.do(t, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email or Password is incorrect.", body["detail"])
}

func TestHTTP_CSRF(t *testing.T) {
	h := newHTTPEnv(t, func(o *account.Options) { o.CSRFEnabled = true })

	resp, body := h.do(t, http.MethodPost, "/login", map[string]string{"email": testEmail, "password": testPassword})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "CSRF Failed: CSRF token missing or incorrect.", body["detail"])

	resp, body = h.do(t, http.MethodGet, "/get-csrf-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CSRF cookie set", body["success"])

	csrfCookie := findCookie(resp, account.CSRFCookieName)
	require.NotNil(t, csrfCookie)

	req := httptest.NewRequest(http.MethodPost, "/auth-api/login",
		bytes.NewBufferString(`{"email":"nobody@example.com","password":"whatever-pass"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(account.CSRFHeaderName, csrfCookie.Value)
	req.AddCookie(&http.Cookie{Name: csrfCookie.Name, Value: csrfCookie.Value})

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionManager_ProtectedRouterMiddleware(t *testing.T) {
	env := newTestEnv(t)
	acc := env.activate(t, testEmail, testPassword)

	auth := account.NewAuthenticator(env.lc)
	sessions := account.NewSessionManager(auth, env.opts).WithLogger(account.NopLogger{})

	srv := router.NewFiberAdapter(account.FiberAppOption(env.opts, account.NopLogger{}))
	srv.Router().Get("/me", func(c router.Context) error {
		out := map[string]string{}
		if local, ok := account.CurrentAccount(c); ok {
			out["local"] = local.ID.String()
		}
		if fromCtx, ok := account.FromContext(c.Context()); ok {
			out["ctx"] = fromCtx.ID.String()
		}
		return c.JSON(http.StatusOK, out)
	}, sessions.ProtectedWith(account.RouteErrorHandler(account.NopLogger{}))).SetName("me.get")

	app := srv.WrappedRouter()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	token, _, err := auth.Login(env.ctx, testEmail, testPassword)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: account.DefaultSessionCookieName, Value: token})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, acc.ID.String(), body["local"])
	assert.Equal(t, acc.ID.String(), body["ctx"])
}
