package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/config"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/metrics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/server"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/projections"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(cfg.DriverURI(), neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	var dbOpts []database.Option
	if cfg.EngineBreakerEnabled {
		dbOpts = append(dbOpts, database.WithCircuitBreaker(gobreaker.Settings{
			Name:    "neo4j",
			Timeout: 30 * time.Second,
		}))
	}
	dbService, err := database.NewNeo4jService(driver, cfg.Database, dbOpts...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := dbService.Close(closeCtx); err != nil {
			slog.Error("failed to close Neo4j driver", "error", err)
		}
	}()

	verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := dbService.VerifyConnectivity(verifyCtx); err != nil {
		return fmt.Errorf("failed to connect to Neo4j at %s: %w", cfg.URI, err)
	}
	slog.Info("connected to Neo4j", "uri", cfg.URI, "database", cfg.Database)

	catalog, err := gds.LoadCatalog(projections.ConfigFiles, "config", cfg.ProjectionConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load projection catalog: %w", err)
	}

	anService := analytics.NewService(cfg.AnalyticsEndpoint, nil)
	collector := metrics.NewCollector("supplychain")
	orchestrator := gds.NewOrchestrator(dbService, catalog, gds.Options{
		Analytics: anService,
		Metrics:   collector,
		MaxAge:    cfg.ProjectionMaxAge,
	})

	srv := server.New(cfg, dbService, anService, orchestrator, collector, version)
	if err := srv.Setup(ctx); err != nil {
		return err
	}
	return srv.Start(ctx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
