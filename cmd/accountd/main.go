package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-account/logging"
	"github.com/goliatone/go-account/mail"
	"github.com/goliatone/go-account/storage"
	flags "github.com/jessevdk/go-flags"
)

const shutdownTimeout = 10 * time.Second

func _main() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	if !cfg.NoFileLogging {
		if err := logging.InitLogRotator(cfg.logFile(), defaultMaxLogRolls); err != nil {
			return err
		}
		defer logging.Close()
	}

	if err := logging.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	log := logging.For(logging.SubsystemAccount)
	log.Info("accountd starting, api prefix %q", cfg.RoutePrefix)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenAndMigrate(ctx, cfg.storageConfig(),
		logging.Goose{Logger: logging.Logger(logging.SubsystemStorage)})
	if err != nil {
		return err
	}
	defer db.Close()

	mailer, err := mail.NewClient(cfg.mailConfig(), logging.For(logging.SubsystemMail))
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	srv := newServer(cfg.accountOptions(), db, mailer, cfg.Debug)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown: %v", err)
		}
	}()

	log.Info("listening on %s", cfg.Listen)
	return srv.Serve(cfg.Listen)
}

func main() {
	if err := _main(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
