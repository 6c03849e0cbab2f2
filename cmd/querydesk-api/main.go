package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/engine"
	"github.com/querydesk/querydesk/internal/executor"
	duckdbexec "github.com/querydesk/querydesk/internal/executor/duckdb"
	pgexec "github.com/querydesk/querydesk/internal/executor/postgres"
	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/schema"
	schemapostgres "github.com/querydesk/querydesk/internal/schema/postgres"
	"github.com/querydesk/querydesk/internal/storage"
	s3store "github.com/querydesk/querydesk/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("querydesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var runner executor.Runner
	switch cfg.Executor.Driver {
	case "duckdb":
		db, err = duckdbexec.Open(cfg.Executor.DuckDBPath)
		if err != nil {
			logger.Error("failed to open duckdb database", slog.Any("error", err))
			os.Exit(1)
		}
		runner = duckdbexec.NewRunner(db, cfg.Executor.RowLimit)
	default:
		db, err = schemapostgres.Open(ctx, schemapostgres.DBConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		runner = pgexec.NewRunner(db, cfg.Executor.RowLimit)
	}
	defer func() { _ = db.Close() }()

	// DuckDB exposes information_schema as well, so the same
	// introspection works for both drivers.
	introspector := schemapostgres.NewIntrospector(db)
	schemaCache := schema.NewCache(introspector)
	if err := schemaCache.Refresh(ctx); err != nil {
		logger.Warn("initial schema refresh failed", slog.Any("error", err))
	}
	go schemaCache.Run(ctx, cfg.Database.SchemaRefreshPeriod, logger)

	client, err := llm.NewClient(cfg.AI)
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	contexts := engine.NewContextManager(cfg.Engine.MaxTurns, cfg.Engine.TokenBudget)
	prompts := engine.NewPromptBuilder(cfg.Engine.HistoryTurns, cfg.Engine.SchemaCharBudget)
	generator := engine.NewSQLGenerator(client, cfg.AI.Timeout, engine.DefaultRetryPolicy(cfg.AI.MaxAttempts, cfg.AI.RetryBaseDelay))
	suggestions := engine.NewSuggestionEngine(cfg.Engine.MaxSuggestions)
	service := engine.NewService(logger, contexts, prompts, generator, suggestions, schemaCache, runner, engine.ServiceConfig{
		MaxQuestionLength: cfg.Engine.MaxQuestionLength,
	})

	var archive storage.ObjectStore
	if cfg.ObjectStore.Enabled {
		archive, err = s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize export archive", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := api.Dependencies{
		Logger:  logger,
		Engine:  service,
		Schema:  schemaCache,
		Archive: archive,
		Readiness: api.CombineReadinessChecks(
			introspector.HealthCheck,
			api.CheckAIConfig(cfg),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
