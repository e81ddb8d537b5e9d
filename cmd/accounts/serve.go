package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the accounts HTTP server",
		RunE:  runServe,
	}

	cmd.Flags().String("server.addr", ":8080", "listen address")
	cmd.Flags().String("server.prefix", "", "route prefix for the account endpoints")
	cmd.Flags().Bool("database.auto_migrate", true, "apply pending migrations on start")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger("accounts", version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	coord, err := buildCoordinator(db, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	accounts.RegisterMetrics(reg)

	app := newApp(cfg, coord, reg, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "prefix", cfg.Server.Prefix)
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "http server stopped")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "http server shutdown failed")
	}
	cmd.Println("Server stopped")
	return nil
}

func newApp(cfg *config.Config, coord *accounts.Coordinator, reg *prometheus.Registry, logger accounts.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "accounts",
		DisableStartupMessage: true,
		ErrorHandler:          accounts.NewErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	controller := accounts.NewAccountsController(coord, cfg,
		accounts.WithControllerLogger(logger),
		accounts.WithControllerRoutes(cfg.ControllerRoutes()),
		accounts.WithHashidSignup(cfg.Signup.UseHashid),
		accounts.WithDebug(cfg.Server.Debug),
	)
	controller.RegisterRoutes(app.Group(routePrefix(cfg.Server.Prefix)))

	return app
}

func routePrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

