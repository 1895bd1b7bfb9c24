package gds

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Dispatcher ensures the projection an algorithm needs and issues the
// algorithm invocation, returning raw engine rows.
type Dispatcher struct {
	db       database.Service
	registry *Registry
	catalog  Catalog
}

// NewDispatcher creates a dispatcher over db. Projections are ensured
// through registry with the signatures in catalog.
func NewDispatcher(db database.Service, registry *Registry, catalog Catalog) *Dispatcher {
	return &Dispatcher{db: db, registry: registry, catalog: catalog}
}

// Run executes req and returns the unmapped rows.
func (d *Dispatcher) Run(ctx context.Context, req AlgorithmRequest) ([]*neo4j.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entry, err := d.catalog.Lookup(req.Kind)
	if err != nil {
		return nil, gdserr.New(gdserr.KindInvalidRequest, "dispatch", err)
	}

	// The lease keeps a concurrent request with another signature for the
	// same name from replacing the projection under this run.
	handle, done, err := d.registry.Acquire(ctx, entry.signatureFor(req))
	if err != nil {
		return nil, err
	}
	defer done()

	switch req.Kind {
	case KindShortestPath:
		return d.shortestPath(ctx, handle, entry, req)
	case KindCentrality:
		return d.pageRank(ctx, handle, entry, req)
	default:
		return d.louvain(ctx, handle, entry, req)
	}
}

func (d *Dispatcher) shortestPath(ctx context.Context, handle Projection, entry CatalogEntry, req AlgorithmRequest) ([]*neo4j.Record, error) {
	sourceID, err := d.resolve(ctx, "source", req.Source)
	if err != nil {
		return nil, err
	}
	targetID, err := d.resolve(ctx, "target", req.Target)
	if err != nil {
		return nil, err
	}

	config := map[string]any{
		"sourceNode": sourceID,
		"targetNode": targetID,
	}
	if req.WeightProperty != "" {
		config["relationshipWeightProperty"] = req.WeightProperty
	}

	params := map[string]any{
		"graphName":         handle.Name,
		"config":            config,
		"sourceDisplay":     req.Source.display(),
		"targetDisplay":     req.Target.display(),
		"displayProperties": append([]string(nil), entry.DisplayProperties...),
	}

	slog.Debug("running shortest path",
		"projection", handle.Name,
		"source", req.Source.Value,
		"target", req.Target.Value,
		"weighted", req.WeightProperty != "")
	return d.execute(ctx, "shortest-path", dijkstraQuery, params)
}

func (d *Dispatcher) pageRank(ctx context.Context, handle Projection, entry CatalogEntry, req AlgorithmRequest) ([]*neo4j.Record, error) {
	config := map[string]any{}
	if req.MaxIterations > 0 {
		config["maxIterations"] = req.MaxIterations
	}
	if req.DampingFactor > 0 {
		config["dampingFactor"] = req.DampingFactor
	}

	query := pageRankQuery(entry.Result.Label, req.order(), req.Limit)
	return d.execute(ctx, "centrality", query, rankedParams(handle, entry, config, req.Limit))
}

func (d *Dispatcher) louvain(ctx context.Context, handle Projection, entry CatalogEntry, req AlgorithmRequest) ([]*neo4j.Record, error) {
	query := louvainQuery(entry.Result.Label, req.order(), req.Limit)
	return d.execute(ctx, "community", query, rankedParams(handle, entry, map[string]any{}, req.Limit))
}

func rankedParams(handle Projection, entry CatalogEntry, config map[string]any, limit int) map[string]any {
	params := map[string]any{
		"graphName":       handle.Name,
		"config":          config,
		"displayProperty": entry.Result.DisplayProperty,
	}
	if limit > 0 {
		params["limit"] = limit
	}
	return params
}

// resolve maps a selector to the engine node id it identifies. A selector
// must match exactly one node.
func (d *Dispatcher) resolve(ctx context.Context, role string, sel *Selector) (int64, error) {
	records, err := d.db.ExecuteReadQuery(ctx, selectorQuery(sel), map[string]any{
		"property": sel.Property,
		"value":    sel.Value,
	})
	if err != nil {
		return 0, engineError("resolve "+role, err)
	}

	switch len(records) {
	case 0:
		return 0, gdserr.Errorf(gdserr.KindNodeNotFound, "resolve "+role,
			fmt.Sprintf("no %s node matches %s.%s = %v", sel.Label, sel.Label, sel.Property, sel.Value))
	case 1:
	default:
		return 0, gdserr.Errorf(gdserr.KindAmbiguousSelector, "resolve "+role,
			fmt.Sprintf("more than one %s node matches %s.%s = %v", sel.Label, sel.Label, sel.Property, sel.Value))
	}

	raw, ok := records[0].Get("nodeId")
	if !ok {
		return 0, gdserr.MalformedRow("resolve "+role, "selector row has no nodeId column")
	}
	id, ok := raw.(int64)
	if !ok {
		return 0, gdserr.MalformedRow("resolve "+role, fmt.Sprintf("nodeId has unexpected type %T", raw))
	}
	return id, nil
}

func (d *Dispatcher) execute(ctx context.Context, op, query string, params map[string]any) ([]*neo4j.Record, error) {
	records, err := d.db.ExecuteReadQuery(ctx, query, params)
	if err != nil {
		slog.Error("algorithm invocation failed", "algorithm", op, "error", err)
		return nil, engineError(op, err)
	}
	return records, nil
}

// engineError tags adapter failures that are not tagged yet.
func engineError(op string, err error) error {
	if gdserr.KindOf(err) != "" {
		return err
	}
	return gdserr.EngineExecutionFailed(op, err)
}
