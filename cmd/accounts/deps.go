package main

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/config"
	"github.com/uptrace/bun"
)

// openDB opens the configured database and applies migrations when
// auto_migrate is set.
func openDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bun.DB, error) {
	opts := make([]accounts.DBOption, 0, 1)
	if cfg.Database.Debug {
		opts = append(opts, accounts.WithQueryDebug(true))
	}

	db, err := accounts.OpenDB(cfg.Database.Driver, cfg.Database.DSN, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		group, err := accounts.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if group != nil && !group.IsZero() {
			logger.Info("migrations applied", "group", group.String())
		}
	}

	return db, nil
}

// buildCoordinator wires the account handlers. Emails are written to the
// log; plug a real EmailSender here to deliver them.
func buildCoordinator(db *bun.DB, cfg *config.Config, logger *slog.Logger) (*accounts.Coordinator, error) {
	sender := accounts.LogEmailSender{Logger: logger.With("component", "mailer")}

	return accounts.NewCoordinatorFromConfig(db, cfg, sender,
		accounts.WithLogger(logger.With("component", "accounts")),
		accounts.WithActivitySink(accounts.MultiActivitySink{
			accounts.MetricsActivitySink{},
			activityLogSink(logger),
		}),
	)
}

func activityLogSink(logger *slog.Logger) accounts.ActivitySink {
	return accounts.ActivitySinkFunc(func(ctx context.Context, event accounts.ActivityEvent) error {
		logger.InfoContext(ctx, "activity", activitymap.Normalize(event).Fields()...)
		return nil
	})
}
