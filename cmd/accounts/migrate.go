package main

import (
	"github.com/goliatone/go-accounts"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, false)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, true)
		},
	})

	return cmd
}

func runMigrate(cmd *cobra.Command, rollback bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := accounts.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	if rollback {
		group, err := accounts.Rollback(ctx, db)
		if err != nil {
			return err
		}
		if group == nil || group.IsZero() {
			cmd.Println("Nothing to roll back")
			return nil
		}
		cmd.Printf("Rolled back %s\n", group)
		return nil
	}

	group, err := accounts.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group == nil || group.IsZero() {
		cmd.Println("No new migrations")
		return nil
	}
	cmd.Printf("Migrated to %s\n", group)
	return nil
}
