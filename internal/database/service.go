package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"

// Neo4jService implements Service on top of the official Neo4j driver.
type Neo4jService struct {
	driver   neo4j.DriverWithContext
	database string
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
}

// Option configures a Neo4jService.
type Option func(*Neo4jService)

// WithCircuitBreaker fails calls fast while the engine keeps erroring.
// Cancelled or timed out contexts and engine client errors (bad labels,
// unknown properties) are not counted as engine failures.
func WithCircuitBreaker(settings gobreaker.Settings) Option {
	return func(s *Neo4jService) {
		if settings.IsSuccessful == nil {
			settings.IsSuccessful = breakerSuccessful
		}
		if settings.OnStateChange == nil {
			settings.OnStateChange = func(name string, from, to gobreaker.State) {
				slog.Warn("engine circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		}
		s.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

func breakerSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Classification() == "ClientError"
}

// WithTracer overrides the tracer; the global provider is used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Neo4jService) {
		s.tracer = tracer
	}
}

// NewNeo4jService creates a new adapter bound to a single database.
func NewNeo4jService(driver neo4j.DriverWithContext, database string, opts ...Option) (*Neo4jService, error) {
	if driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if database == "" {
		return nil, fmt.Errorf("database name is required")
	}
	s := &Neo4jService{
		driver:   driver,
		database: database,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// VerifyConnectivity checks the driver can reach the engine.
func (s *Neo4jService) VerifyConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return gdserr.EngineExecutionFailed("verify-connectivity", err)
	}
	return nil
}

// ExecuteReadQuery runs cypher in a read session and collects all records.
func (s *Neo4jService) ExecuteReadQuery(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return s.execute(ctx, neo4j.AccessModeRead, cypher, params)
}

// ExecuteWriteQuery runs cypher in a write session and collects all records.
func (s *Neo4jService) ExecuteWriteQuery(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	return s.execute(ctx, neo4j.AccessModeWrite, cypher, params)
}

// GetDatabaseName returns the target database.
func (s *Neo4jService) GetDatabaseName() string {
	return s.database
}

// Close releases the driver and its connection pool.
func (s *Neo4jService) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jService) execute(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	op := "read"
	if mode == neo4j.AccessModeWrite {
		op = "write"
	}

	ctx, span := s.tracer.Start(ctx, "neo4j."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("db.name", s.database),
		))
	defer span.End()

	run := func() (any, error) {
		return s.runInSession(ctx, mode, cypher, params)
	}

	var (
		out any
		err error
	)
	if s.breaker != nil {
		out, err = s.breaker.Execute(run)
	} else {
		out, err = run()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Debug("engine command failed", "mode", op, "database", s.database, "error", err)

		tagged := gdserr.EngineExecutionFailed(op, err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			tagged.Unavailable = true
		}
		return nil, tagged
	}

	records, _ := out.([]*neo4j.Record)
	span.SetAttributes(attribute.Int("db.records", len(records)))
	return records, nil
}

// runInSession scopes a session to a single auto-commit command; the
// deferred close runs on success, engine error, transport error and
// cancellation alike. Auto-commit runs are attempted exactly once, unlike
// managed transactions which the driver retries.
func (s *Neo4jService) runInSession(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   mode,
	})
	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil {
			slog.Warn("failed to close neo4j session", "error", closeErr)
		}
	}()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

// Neo4jRecordsToJSON renders records as a JSON array, one object per record.
func (s *Neo4jService) Neo4jRecordsToJSON(records []*neo4j.Record) (string, error) {
	results := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = normalizeValue(record.Values[i])
		}
		results = append(results, row)
	}

	formatted, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format records as JSON: %w", err)
	}
	return string(formatted), nil
}

// normalizeValue converts driver graph types into plain maps so they encode
// to readable JSON.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		props := make(map[string]any, len(val.Props)+1)
		for k, p := range val.Props {
			props[k] = normalizeValue(p)
		}
		props["labels"] = val.Labels
		return props
	case dbtype.Relationship:
		props := make(map[string]any, len(val.Props)+1)
		for k, p := range val.Props {
			props[k] = normalizeValue(p)
		}
		props["type"] = val.Type
		return props
	case dbtype.Path:
		nodes := make([]any, 0, len(val.Nodes))
		for _, n := range val.Nodes {
			nodes = append(nodes, normalizeValue(n))
		}
		return map[string]any{"nodes": nodes}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
