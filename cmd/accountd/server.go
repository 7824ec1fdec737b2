package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/activitymap"
	"github.com/goliatone/go-account/logging"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

type server struct {
	http       router.Server[*fiber.App]
	lifecycle  *account.Lifecycle
	sessions   *account.SessionManager
	controller *account.AccountController
}

func newServer(opts account.Options, db *bun.DB, notifier account.Notifier, debug bool) *server {
	acctLog := logging.For(logging.SubsystemAccount)
	httpLog := logging.For(logging.SubsystemHTTP)

	repo := account.NewRepositoryManager(db)
	repo.MustValidate()

	lc := account.NewLifecycle(opts, repo,
		account.WithNotifier(notifier),
		account.WithActivitySink(activitymap.Sink(acctLog)),
		account.WithLogger(acctLog),
		account.WithActivationHooks(
			func(_ context.Context, tc account.TransitionContext) error {
				acctLog.Debug("activating account %s: %s -> %s", tc.Account.ID, tc.From, tc.To)
				return nil
			},
			func(_ context.Context, tc account.TransitionContext) error {
				acctLog.Info("account %s activated", tc.Account.ID)
				return nil
			},
		),
	)

	sessions := account.NewSessionManager(account.NewAuthenticator(lc), opts).
		WithLogger(httpLog)

	srv := router.NewFiberAdapter(account.FiberAppOption(opts, httpLog,
		recover.New(),
		logger.New(logger.Config{
			Output: logging.Writer(logging.SubsystemHTTP),
		}),
	))

	controller := account.RegisterAccountRoutes(srv.Router(),
		account.WithControllerLifecycle(lc),
		account.WithControllerSessions(sessions),
		account.WithControllerConfig(opts),
		account.WithControllerLogger(httpLog),
		account.WithControllerDebug(debug),
	)

	return &server{
		http:       srv,
		lifecycle:  lc,
		sessions:   sessions,
		controller: controller,
	}
}

func (s *server) Serve(addr string) error {
	return s.http.Serve(addr)
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
