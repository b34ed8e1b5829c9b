// Package main is the entry point for the PowerPlan API server.
//
// It loads configuration, opens the PostgreSQL pool, wires repositories,
// services and handlers onto the core chassis (middleware, routing, health
// checks), and starts serving.
//
// In local mode it runs as a standard HTTP server on the configured port.
// Inside AWS Lambda it serves function URL events through lambdaurl.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambdaurl"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"powerplan/internal/api/handlers"
	"powerplan/internal/auth"
	"powerplan/internal/billing"
	"powerplan/internal/config"
	"powerplan/internal/core"
	"powerplan/internal/db"
	"powerplan/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// database is the pool surface the API needs. *pgxpool.Pool satisfies it.
type database interface {
	db.DBTX
	db.TxBeginner
	core.Pinger
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// SSM is consulted only outside APP_ENV=local; the region has to come
	// from the raw environment because the config is not loaded yet.
	provider := config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	cfg, err := config.LoadConfig(provider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("powerplan API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	var metrics *core.CloudWatchMetrics
	if cfg.Observability.EnableMetrics {
		metrics, err = newCloudWatchMetrics(ctx, cfg, logger)
		if err != nil {
			pool.Close()
			return fmt.Errorf("creating metrics client: %w", err)
		}
	}

	srv, err := buildServer(cfg, logger, pool, metrics)
	if err != nil {
		pool.Close()
		return err
	}
	srv.Closers = append(srv.Closers, func() error {
		pool.Close()
		return nil
	})

	if isLambdaEnvironment() {
		return runLambda(srv, logger)
	}
	return runHTTPServer(srv, cfg, logger)
}

// buildServer wires repositories, services and handlers onto a new server
// and mounts its routes. A nil metrics leaves request metrics disabled.
func buildServer(cfg *config.Config, logger *slog.Logger, store database, metrics *core.CloudWatchMetrics) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	planRepo := db.NewPlanRepository(store)
	taxGroupRepo := db.NewTaxGroupRepository(store)
	userRepo := db.NewUserRepository(store)
	analyticsRepo := db.NewAnalyticsRepository(store)

	catalogCfg := billing.CatalogConfig{
		Source:          planRepo,
		SnapshotTTL:     cfg.Catalog.SnapshotTTL,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		BreakerTimeout:  cfg.Catalog.BreakerTimeout,
		Logger:          logger,
	}
	if metrics != nil {
		srv.Metrics = metrics
		catalogCfg.OnStaleServe = func() { metrics.RecordEvent(types.MetricCatalogFallback) }
	}

	catalog := billing.NewPlanCatalog(catalogCfg)
	planSvc := billing.NewPlanService(billing.PlanServiceConfig{
		Store:     planRepo,
		TxManager: billing.NewPlanTxManager(store),
		TaxGroups: taxGroupRepo,
		Catalog:   catalog,
		Logger:    logger,
	})
	taxGroupSvc := billing.NewTaxGroupService(taxGroupRepo, nil, logger)

	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: []byte(cfg.Auth.JWTSigningKey.Unmask()),
		Issuer:     cfg.Auth.JWTIssuer,
		Audience:   cfg.Auth.JWTAudience,
		TTL:        cfg.Auth.TokenTTL,
	})
	hasher := auth.NewBcryptHasher()
	authSvc := auth.NewAuthService(auth.AuthServiceConfig{
		Users:  userRepo,
		Tokens: tokens,
		Hasher: hasher,
		Logger: logger,
	})
	srv.Authenticator = tokens

	set := handlers.Set{
		Auth:      handlers.NewAuthHandler(authSvc, srv.Validator, logger),
		Plans:     handlers.NewPlanHandler(planSvc, srv.Validator, logger),
		TaxGroups: handlers.NewTaxGroupHandler(taxGroupSvc, logger),
		Users:     handlers.NewUserHandler(userRepo, planRepo, taxGroupRepo, hasher, srv.Validator, logger),
		Analytics: handlers.NewAnalyticsHandler(analyticsRepo, logger),
	}
	srv.RouteRegistrars = append(srv.RouteRegistrars, set.Routes(srv.RequireRole))
	srv.HealthChecks = append(srv.HealthChecks,
		core.NewPingChecker("database", store),
		core.NewOptionalChecker(catalog),
	)

	if err := srv.MountRoutes(); err != nil {
		return nil, fmt.Errorf("mounting routes: %w", err)
	}
	return srv, nil
}

// newCloudWatchMetrics creates the CloudWatch publisher, honouring the
// endpoint override used with LocalStack.
func newCloudWatchMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.CloudWatchMetrics, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return core.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, logger), nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runLambda serves Lambda function URL events with the chi router. The
// runtime owns the process lifetime, so lambdaurl.Start does not return.
func runLambda(srv *core.Server, logger *slog.Logger) error {
	logger.Info("starting in Lambda function URL mode")
	lambdaurl.Start(srv.Handler())
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
