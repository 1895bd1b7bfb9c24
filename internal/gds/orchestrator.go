// Package gds orchestrates Graph Data Science algorithm runs: it keeps named
// in-memory projections consistent with the algorithm about to run, issues
// the algorithm invocation and maps engine rows to stable result records.
package gds

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/metrics"
)

// Options configures an Orchestrator. Zero values disable the feature.
type Options struct {
	Analytics analytics.Service
	Metrics   *metrics.Collector

	// MaxAge recreates projections older than this on the next run.
	MaxAge time.Duration
}

// Orchestrator is the entry point used by the HTTP and MCP surfaces.
type Orchestrator struct {
	registry   *Registry
	dispatcher *Dispatcher
	catalog    Catalog
	analytics  analytics.Service
	metrics    *metrics.Collector
}

// NewOrchestrator wires a registry and dispatcher over db.
func NewOrchestrator(db database.Service, catalog Catalog, opts Options) *Orchestrator {
	regOpts := []RegistryOption{WithMaxAge(opts.MaxAge), WithMetrics(opts.Metrics)}
	if opts.Analytics != nil {
		regOpts = append(regOpts, WithAnalytics(opts.Analytics))
	}
	registry := NewRegistry(db, regOpts...)

	return &Orchestrator{
		registry:   registry,
		dispatcher: NewDispatcher(db, registry, catalog),
		catalog:    catalog,
		analytics:  opts.Analytics,
		metrics:    opts.Metrics,
	}
}

// Run validates, dispatches and maps one algorithm request. It either
// returns every mapped record or an error and no records.
func (o *Orchestrator) Run(ctx context.Context, req AlgorithmRequest) (records []ResultRecord, err error) {
	started := time.Now()
	defer func() {
		o.metrics.RecordAlgorithm(string(req.Kind), started, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	rows, err := o.dispatcher.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	records, err = Map(req.Kind, rows, WithForm(req.form()), WithOrder(req.order()))
	if err != nil {
		slog.Error("failed to map algorithm rows", "algorithm", req.Kind, "error", err)
		return nil, err
	}

	if o.analytics != nil {
		projection := req.ProjectionName
		if projection == "" {
			if entry, lookupErr := o.catalog.Lookup(req.Kind); lookupErr == nil {
				projection = entry.Projection.Name
			}
		}
		o.analytics.EmitEvent(o.analytics.NewAlgorithmEvent(string(req.Kind), projection))
	}

	slog.Debug("algorithm run completed", "algorithm", req.Kind, "records", len(records), "duration", time.Since(started))
	return records, nil
}

// Invalidate marks a projection stale and reports whether it was known.
func (o *Orchestrator) Invalidate(name string) bool {
	return o.registry.Invalidate(name)
}

// Drop releases a projection in the engine.
func (o *Orchestrator) Drop(ctx context.Context, name string) (bool, error) {
	return o.registry.Drop(ctx, name)
}

// Projections lists the projections this process materialized.
func (o *Orchestrator) Projections() []Projection {
	return o.registry.List()
}

// Catalog returns the configured projection catalog.
func (o *Orchestrator) Catalog() Catalog {
	return o.catalog
}
