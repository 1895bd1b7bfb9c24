package gds

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/metrics"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Registry tracks the named projections this process materialized in the
// engine. Every mutation of a record is paired with the engine command that
// makes it true; a record exists only after its create command completed.
type Registry struct {
	db        database.Service
	analytics analytics.Service
	metrics   *metrics.Collector
	maxAge    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
	version uint64
}

// registryEntry is the per-name slot. lock serializes engine commands and
// lease grants for the name. Everything else is guarded by Registry.mu.
type registryEntry struct {
	lock chan struct{}

	// refs counts goroutines holding or waiting on the entry; an entry
	// with no refs and no record is removed from the registry.
	refs int

	// users counts algorithm runs leasing the current record. A command
	// that replaces the projection waits for idle first.
	users int
	idle  chan struct{}

	record *Projection
	stale  bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithAnalytics emits projection created/dropped events.
func WithAnalytics(svc analytics.Service) RegistryOption {
	return func(r *Registry) { r.analytics = svc }
}

// WithMetrics counts projection commands.
func WithMetrics(c *metrics.Collector) RegistryOption {
	return func(r *Registry) { r.metrics = c }
}

// WithMaxAge treats records older than d as stale. Zero disables aging.
func WithMaxAge(d time.Duration) RegistryOption {
	return func(r *Registry) { r.maxAge = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry driving db.
func NewRegistry(db database.Service, opts ...RegistryOption) *Registry {
	r := &Registry{
		db:      db,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure returns a handle to a projection matching sig, creating it when it
// is absent, stale or recorded with a different signature. Calls for the
// same name are serialized; a caller that waited on an in-flight create
// observes its record and issues no engine command.
func (r *Registry) Ensure(ctx context.Context, sig Signature) (Projection, error) {
	handle, done, err := r.Acquire(ctx, sig)
	if err != nil {
		return Projection{}, err
	}
	done()
	return handle, nil
}

// Acquire is Ensure plus a lease on the returned projection: until done is
// called, no other caller drops or recreates the name, so an algorithm run
// always reads the signature it asked for. done is safe to call twice.
func (r *Registry) Acquire(ctx context.Context, sig Signature) (Projection, func(), error) {
	if err := sig.Validate(); err != nil {
		return Projection{}, nil, gdserr.New(gdserr.KindInvalidRequest, "ensure", err)
	}

	entry := r.checkout(sig.Name)
	if err := acquire(ctx, entry); err != nil {
		r.checkin(sig.Name, entry)
		return Projection{}, nil, err
	}

	handle, err := r.ensureLocked(ctx, entry, sig)
	if err != nil {
		release(entry)
		r.checkin(sig.Name, entry)
		return Projection{}, nil, err
	}

	r.mu.Lock()
	entry.users++
	r.mu.Unlock()
	release(entry)

	var once sync.Once
	done := func() {
		once.Do(func() {
			r.mu.Lock()
			entry.users--
			if entry.users == 0 && entry.idle != nil {
				close(entry.idle)
				entry.idle = nil
			}
			r.mu.Unlock()
			r.checkin(sig.Name, entry)
		})
	}
	return handle, done, nil
}

// ensureLocked must be called with the entry lock held.
func (r *Registry) ensureLocked(ctx context.Context, entry *registryEntry, sig Signature) (Projection, error) {
	r.mu.Lock()
	current := entry.record
	fresh := current != nil && !entry.stale && !r.expired(current) && current.Signature.Equal(sig)
	if fresh {
		handle := *current
		r.mu.Unlock()
		slog.Debug("projection up to date", "projection", sig.Name, "version", handle.Version)
		return handle, nil
	}
	r.mu.Unlock()

	reason := "absent"
	switch {
	case current == nil:
	case !current.Signature.Equal(sig):
		reason = "signature changed"
	default:
		reason = "stale"
	}
	slog.Info("ensuring projection", "projection", sig.Name, "reason", reason)

	if err := r.waitIdle(ctx, entry, sig.Name); err != nil {
		return Projection{}, err
	}

	// From here the engine state is in flux; until create completes the
	// name is treated as absent.
	r.mu.Lock()
	entry.record = nil
	entry.stale = false
	r.mu.Unlock()

	if _, err := r.drop(ctx, sig.Name); err != nil {
		return Projection{}, err
	}

	projection, err := r.create(ctx, sig)
	if err != nil {
		return Projection{}, err
	}

	r.mu.Lock()
	stored := projection
	entry.record = &stored
	r.mu.Unlock()

	return projection, nil
}

// Invalidate marks the named projection stale so the next Ensure recreates
// it. An Invalidate racing an in-flight create still applies to the record
// that create produces. It reports whether the name was known; unknown
// names are left alone since their next Ensure creates them anyway.
func (r *Registry) Invalidate(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		slog.Debug("invalidate of unknown projection ignored", "projection", name)
		return false
	}
	entry.stale = true
	slog.Info("projection invalidated", "projection", name)
	return true
}

// Drop releases the named projection in the engine and forgets its record.
// It waits for runs leasing the projection and reports whether the engine
// held a projection under that name.
func (r *Registry) Drop(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, gdserr.Errorf(gdserr.KindInvalidRequest, "drop", "projection name is required")
	}
	entry := r.checkout(name)
	defer r.checkin(name, entry)

	if err := acquire(ctx, entry); err != nil {
		return false, err
	}
	defer release(entry)

	if err := r.waitIdle(ctx, entry, name); err != nil {
		return false, err
	}

	r.mu.Lock()
	entry.record = nil
	entry.stale = false
	r.mu.Unlock()

	return r.drop(ctx, name)
}

// Get returns the record for name, if any.
func (r *Registry) Get(name string) (Projection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok || entry.record == nil {
		return Projection{}, false
	}
	p := *entry.record
	p.Stale = entry.stale || r.expired(entry.record)
	return p, true
}

// List returns all recorded projections ordered by name.
func (r *Registry) List() []Projection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Projection, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.record == nil {
			continue
		}
		p := *entry.record
		p.Stale = entry.stale || r.expired(entry.record)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// checkout returns the slot for name, creating it if needed, and pins it
// until the matching checkin.
func (r *Registry) checkout(name string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		entry = &registryEntry{lock: make(chan struct{}, 1)}
		r.entries[name] = entry
	}
	entry.refs++
	return entry
}

func (r *Registry) checkin(name string, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.refs--
	if entry.refs == 0 && entry.record == nil && r.entries[name] == entry {
		delete(r.entries, name)
	}
}

// waitIdle blocks until no run leases the entry's record. It must be called
// with the entry lock held so no new lease is granted meanwhile.
func (r *Registry) waitIdle(ctx context.Context, entry *registryEntry, name string) error {
	r.mu.Lock()
	if entry.users == 0 {
		r.mu.Unlock()
		return nil
	}
	if entry.idle == nil {
		entry.idle = make(chan struct{})
	}
	idle, users := entry.idle, entry.users
	r.mu.Unlock()

	slog.Debug("waiting for runs on projection", "projection", name, "runs", users)
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return gdserr.EngineExecutionFailed("ensure", ctx.Err())
	}
}

// expired must be called with r.mu held.
func (r *Registry) expired(p *Projection) bool {
	return r.maxAge > 0 && r.now().Sub(p.CreatedAt) > r.maxAge
}

// drop issues the engine drop command. It must be called with the entry lock held.
func (r *Registry) drop(ctx context.Context, name string) (bool, error) {
	records, err := r.db.ExecuteWriteQuery(ctx, dropGraphQuery, map[string]any{"graphName": name})
	r.metrics.RecordProjection("drop", err)
	if err != nil {
		slog.Error("failed to drop projection", "projection", name, "error", err)
		return false, projectionError(ctx, "drop", err)
	}
	dropped := len(records) > 0
	if dropped {
		slog.Info("projection dropped", "projection", name)
		if r.analytics != nil {
			r.analytics.EmitEvent(r.analytics.NewGDSProjDropEvent(name))
		}
	}
	return dropped, nil
}

// create issues the engine create command. It must be called with the entry lock held.
func (r *Registry) create(ctx context.Context, sig Signature) (Projection, error) {
	records, err := r.db.ExecuteWriteQuery(ctx, projectGraphQuery, projectionParams(sig))
	r.metrics.RecordProjection("create", err)
	if err != nil {
		slog.Error("failed to create projection", "projection", sig.Name, "error", err)
		return Projection{}, projectionError(ctx, "create", err)
	}

	r.mu.Lock()
	r.version++
	version := r.version
	r.mu.Unlock()

	projection := Projection{
		Name:      sig.Name,
		Signature: sig.clone(),
		Version:   version,
		CreatedAt: r.now(),
	}
	if len(records) > 0 {
		projection.NodeCount = int64Field(records[0], "nodeCount")
		projection.RelationshipCount = int64Field(records[0], "relationshipCount")
	}

	slog.Info("projection created",
		"projection", sig.Name,
		"version", version,
		"nodeCount", projection.NodeCount,
		"relationshipCount", projection.RelationshipCount)
	if r.analytics != nil {
		r.analytics.EmitEvent(r.analytics.NewGDSProjCreatedEvent(sig.Name))
	}
	return projection, nil
}

// projectionError tags a failed projection command. Only an engine rejection
// becomes ProjectionCreateFailed; transport failures, an open breaker and
// cancellation keep their execution tag.
func projectionError(ctx context.Context, op string, err error) error {
	var neoErr *neo4j.Neo4jError
	if ctx.Err() == nil && errors.As(err, &neoErr) {
		return gdserr.ProjectionCreateFailed(op, err)
	}
	return engineError(op, err)
}

func acquire(ctx context.Context, entry *registryEntry) error {
	if err := ctx.Err(); err != nil {
		return gdserr.EngineExecutionFailed("ensure", err)
	}
	select {
	case entry.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return gdserr.EngineExecutionFailed("ensure", ctx.Err())
	}
}

func release(entry *registryEntry) {
	<-entry.lock
}

func int64Field(record *neo4j.Record, key string) int64 {
	v, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
