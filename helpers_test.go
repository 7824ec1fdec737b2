package account_test

import (
	"context"
	"sync"
	"testing"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/storage"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret    = "test-secret-key-that-is-long-enough"
	testEmail     = "jane@example.com"
	testPassword  = "Tr1cky-Horse-Battery"
	testPassword2 = "Another-Gr33n-Lamp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testOptions() account.Options {
	opts := account.DefaultOptions()
	opts.SecretKey = testSecret
	opts.PasswordHashCost = bcrypt.MinCost
	opts.SessionSecure = false
	opts.CSRFEnabled = false
	opts.SiteURL = "http://localhost:8000"
	return opts
}

type testEnv struct {
	ctx      context.Context
	db       *bun.DB
	opts     account.Options
	repo     account.RepositoryManager
	lc       *account.Lifecycle
	clock    *fakeClock
	notifier *recordingNotifier
	sink     *recordingSink
}

func newTestEnv(t *testing.T, mutate ...func(*account.Options)) *testEnv {
	t.Helper()

	ctx := context.Background()
	db, err := storage.OpenAndMigrate(ctx, storage.DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	opts := testOptions()
	for _, fn := range mutate {
		fn(&opts)
	}

	env := &testEnv{
		ctx:      ctx,
		db:       db,
		opts:     opts,
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
	}

	env.repo = account.NewRepositoryManager(db, env.clock.Now)
	env.lc = account.NewLifecycle(opts, env.repo,
		account.WithNotifier(env.notifier),
		account.WithActivitySink(env.sink),
		account.WithClock(env.clock.Now),
		account.WithLogger(account.NopLogger{}),
		account.WithPasswordHasher(account.NewBcryptHasher(bcrypt.MinCost)),
	)

	return env
}

// register creates a pending account and returns it with its activation notification
func (e *testEnv) register(t *testing.T, email, password string) (*account.Account, account.Notification) {
	t.Helper()

	var resp *account.RegisterAccountResponse
	err := account.NewRegisterAccountHandler(e.lc).Execute(e.ctx, account.RegisterAccountMessage{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		OnResponse: func(r *account.RegisterAccountResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	return resp.Account, e.notifier.last()
}

// activate registers and activates an account
func (e *testEnv) activate(t *testing.T, email, password string) *account.Account {
	t.Helper()

	acc, n := e.register(t, email, password)
	err := account.NewActivateAccountHandler(e.lc).Execute(e.ctx, account.ActivateAccountMessage{
		UID:   n.UID,
		Token: n.Token,
	})
	require.NoError(t, err)

	fresh, err := e.repo.Accounts().GetByID(e.ctx, acc.ID.String())
	require.NoError(t, err)
	require.True(t, fresh.IsActive)
	return fresh
}

func (e *testEnv) reload(t *testing.T, acc *account.Account) *account.Account {
	t.Helper()
	fresh, err := e.repo.Accounts().GetByID(e.ctx, acc.ID.String())
	require.NoError(t, err)
	return fresh
}
