package main

import (
	"github.com/goliatone/go-accounts/config"
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the accounts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "User accounts and session authentication service",
		Long: `accounts serves signup, login, email verification and password
recovery over HTTP, backed by sqlite or postgres.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file path")
	cmd.PersistentFlags().String("database.driver", "sqlite", "database driver (sqlite or postgres)")
	cmd.PersistentFlags().String("database.dsn", "", "database connection string")
	cmd.PersistentFlags().String("log.level", "info", "log level")
	cmd.PersistentFlags().String("log.format", "text", "log format (text or json)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		File:    configFile,
		EnvFile: envFile,
		Flags:   cmd.Flags(),
	})
}
