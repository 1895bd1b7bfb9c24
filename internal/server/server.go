package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/config"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/metrics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/queries"
)

const serverName = "neo4j-supplychain-gds"

// Server serves the HTTP API and the MCP endpoint over one listener.
type Server struct {
	config       *config.Config
	dbService    database.Service
	anService    analytics.Service
	orchestrator *gds.Orchestrator
	metrics      *metrics.Collector
	version      string

	gdsInstalled bool
	MCPServer    *server.MCPServer
	handler      http.Handler
}

// New creates a server. Setup must be called before serving.
func New(cfg *config.Config, db database.Service, an analytics.Service, orchestrator *gds.Orchestrator, collector *metrics.Collector, version string) *Server {
	return &Server{
		config:       cfg,
		dbService:    db,
		anService:    an,
		orchestrator: orchestrator,
		metrics:      collector,
		version:      version,
		MCPServer: server.NewMCPServer(
			serverName,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
}

// Setup probes the engine for GDS, registers the MCP tools and builds the router.
func (s *Server) Setup(ctx context.Context) error {
	gdsVersion, err := queries.GDSVersion(ctx, s.dbService)
	if err != nil {
		slog.Warn("Graph Data Science plugin not available, analytics tools disabled", "error", err)
	} else {
		s.gdsInstalled = true
		slog.Info("Graph Data Science plugin detected", "version", gdsVersion)
	}

	if err := s.registerTools(); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	s.anService.EmitEvent(s.anService.NewStartupEvent(analytics.StartupEventInfo{
		DatabaseName:  s.dbService.GetDatabaseName(),
		GDSInstalled:  s.gdsInstalled,
		ReadOnly:      s.config.ReadOnly,
		Version:       s.version,
		ProjectionCnt: len(s.orchestrator.Catalog()),
	}))

	s.handler = s.routes()
	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.handler == nil {
		return errors.New("server is not set up")
	}

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "database", s.dbService.GetDatabaseName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
