package account_test

import (
	"context"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOptions_Defaults(t *testing.T) {
	opts := account.DefaultOptions()

	assert.Error(t, opts.Validate())

	opts.SecretKey = testSecret
	require.NoError(t, opts.Validate())

	assert.Equal(t, account.DefaultIssuer, opts.GetIssuer())
	assert.Equal(t, 24*time.Hour, opts.GetActivationMaxAge())
	assert.Equal(t, time.Hour, opts.GetResetMaxAge())
	assert.Equal(t, "sessionid", opts.GetSessionCookieName())
	assert.Equal(t, "/auth-api", opts.GetRoutePrefix())
	assert.True(t, opts.GetCSRFEnabled())
	assert.True(t, opts.GetSessionSecure())
}

func TestOptions_Normalization(t *testing.T) {
	opts := account.Options{
		SecretKey:   testSecret,
		SiteURL:     "https://example.com/",
		RoutePrefix: "api/auth/",
	}

	assert.Equal(t, "https://example.com", opts.GetSiteURL())
	assert.Equal(t, "/api/auth", opts.GetRoutePrefix())
	assert.Equal(t, account.DefaultActivationMaxAge, opts.GetActivationMaxAge())
	assert.Equal(t, account.DefaultSessionTTL, opts.GetSessionTTL())
	assert.Equal(t, account.DefaultSessionCookieName, opts.GetSessionCookieName())

	opts.RoutePrefix = "/"
	assert.Equal(t, "", opts.GetRoutePrefix())

	opts.ResetMaxAge = -time.Second
	assert.Error(t, opts.Validate())
}

func TestLinkBuilder(t *testing.T) {
	opts := testOptions()
	opts.SiteURL = "https://example.com/"
	links := account.NewLinkBuilder(opts)

	assert.Equal(t, "https://example.com/auth-api/activate/abc/tok.en/", links.ActivationLink("abc", "tok.en"))
	assert.Equal(t, "https://example.com/auth-api/reset-password/abc/tok/", links.ResetLink("abc", "tok"))
}

func TestLifecycle_UsesNotifier(t *testing.T) {
	env := newTestEnv(t)

	notifier := &MockNotifier{}
	notifier.On("Send", mock.Anything, mock.MatchedBy(func(n account.Notification) bool {
		return n.Kind == account.NotificationActivation && n.To == testEmail && n.Link != ""
	})).Return(nil).Once()

	lc := account.NewLifecycle(env.opts, env.repo,
		account.WithNotifier(notifier),
		account.WithLogger(account.NopLogger{}),
	)

	err := account.NewRegisterAccountHandler(lc).Execute(context.Background(), account.RegisterAccountMessage{
		Email:           testEmail,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestLogNotifier(t *testing.T) {
	n := account.LogNotifier{Logger: account.NopLogger{}}
	assert.NoError(t, n.Send(context.Background(), account.Notification{Kind: account.NotificationActivation}))

	var fn account.NotifierFunc
	assert.NoError(t, fn.Send(context.Background(), account.Notification{}))
}
