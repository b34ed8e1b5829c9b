package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"powerplan/internal/config"
	"powerplan/internal/db"
)

const connectTimeout = 15 * time.Second

// Execute runs the CLI.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "powerplanctl",
		Short:         "PowerPlan operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newQuoteCmd())
	return cmd
}

// cliLogger writes human-readable logs to the command's stderr.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	lvl := slog.LevelInfo
	if raw, _ := cmd.Flags().GetString("log-level"); raw != "" {
		_ = lvl.UnmarshalText([]byte(raw))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}

// loadDatabaseConfig resolves the database settings. A non-empty urlOverride
// takes precedence over DATABASE_URL.
func loadDatabaseConfig(urlOverride string) (*config.DatabaseConfig, error) {
	if urlOverride != "" {
		if err := os.Setenv("DATABASE_URL", urlOverride); err != nil {
			return nil, fmt.Errorf("setting DATABASE_URL: %w", err)
		}
	}

	provider := config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	dbCfg, err := config.LoadDatabaseConfig(provider)
	if err != nil {
		return nil, fmt.Errorf("loading database configuration: %w", err)
	}
	return dbCfg, nil
}

// openPool connects with the resolved database settings.
func openPool(ctx context.Context, urlOverride string) (*pgxpool.Pool, error) {
	dbCfg, err := loadDatabaseConfig(urlOverride)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return db.NewPool(ctx, *dbCfg)
}
