package gds_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	analytics "github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics/mocks"
	db "github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database/mocks"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// queryContains matches a Cypher string containing the given fragment.
type queryContains string

func (m queryContains) Matches(x any) bool {
	s, ok := x.(string)
	return ok && strings.Contains(s, string(m))
}

func (m queryContains) String() string {
	return "query containing " + string(m)
}

const (
	dropFragment     = "gds.graph.drop"
	projectFragment  = "gds.graph.project"
	dijkstraFragment = "gds.shortestPath.dijkstra.stream"
	pageRankFragment = "gds.pageRank.stream"
	louvainFragment  = "gds.louvain.stream"
)

func supplyChainSignature() gds.Signature {
	return gds.Signature{
		Name:       "supplyChainGraph",
		NodeLabels: []string{"Supplier", "Product", "Order", "Customer"},
		Relationships: []gds.RelationshipProjection{
			{Type: "SUPPLIES", Orientation: gds.Undirected},
			{Type: "ORDERS", Orientation: gds.Undirected},
			{Type: "PURCHASED", Orientation: gds.Undirected},
		},
	}
}

func createdRow(name string) []*neo4j.Record {
	return []*neo4j.Record{
		{
			Keys:   []string{"graphName", "nodeCount", "relationshipCount"},
			Values: []any{name, int64(1035), int64(3139)},
		},
	}
}

func droppedRow(name string) []*neo4j.Record {
	return []*neo4j.Record{{Keys: []string{"graphName"}, Values: []any{name}}}
}

func TestRegistryEnsure(t *testing.T) {
	ctx := context.Background()

	t.Run("identical signature creates once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		mockDB.EXPECT().
			ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).
			Return(nil, nil).
			Times(1)
		mockDB.EXPECT().
			ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
			Return(createdRow("supplyChainGraph"), nil).
			Times(1)

		registry := gds.NewRegistry(mockDB)

		first, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)
		second, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		assert.Equal(t, first.Version, second.Version)
		assert.Equal(t, int64(1035), first.NodeCount)
		assert.Equal(t, int64(3139), first.RelationshipCount)
	})

	t.Run("declaration order does not change the signature", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil).Times(1)
		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil).Times(1)

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		reordered := supplyChainSignature()
		reordered.NodeLabels = []string{"Customer", "Order", "Product", "Supplier"}
		reordered.Relationships[0], reordered.Relationships[2] = reordered.Relationships[2], reordered.Relationships[0]
		_, err = registry.Ensure(ctx, reordered)
		require.NoError(t, err)
	})

	t.Run("invalidate forces recreation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		gomock.InOrder(
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(droppedRow("supplyChainGraph"), nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil),
		)

		registry := gds.NewRegistry(mockDB)
		first, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		assert.True(t, registry.Invalidate("supplyChainGraph"))
		stale, ok := registry.Get("supplyChainGraph")
		require.True(t, ok)
		assert.True(t, stale.Stale)

		second, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)
		assert.Greater(t, second.Version, first.Version)

		current, ok := registry.Get("supplyChainGraph")
		require.True(t, ok)
		assert.False(t, current.Stale)
	})

	t.Run("signature change drops before create", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		weighted := supplyChainSignature().WithWeight("quantity")

		gomock.InOrder(
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(droppedRow("supplyChainGraph"), nil),
			mockDB.EXPECT().
				ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, params map[string]any) ([]*neo4j.Record, error) {
					rels := params["relationshipProjection"].(map[string]any)
					supplies := rels["SUPPLIES"].(map[string]any)
					assert.Contains(t, supplies, "properties")
					return createdRow("supplyChainGraph"), nil
				}),
		)

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		handle, err := registry.Ensure(ctx, weighted)
		require.NoError(t, err)
		assert.True(t, handle.Signature.Equal(weighted))
	})

	t.Run("max age expires records", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil).Times(2)
		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil).Times(2)

		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		registry := gds.NewRegistry(mockDB,
			gds.WithMaxAge(time.Hour),
			gds.WithClock(func() time.Time { return now }))

		_, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		now = now.Add(30 * time.Minute)
		_, err = registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		now = now.Add(2 * time.Hour)
		_, err = registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)
	})

	t.Run("invalid signature never reaches the engine", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		registry := gds.NewRegistry(mockDB)
		sig := supplyChainSignature()
		sig.NodeLabels = []string{"Supplier) DETACH DELETE (n"}

		_, err := registry.Ensure(ctx, sig)
		require.Error(t, err)
		assert.True(t, gdserr.Is(err, gdserr.KindInvalidRequest))
	})
}

func TestRegistryEnsureFailures(t *testing.T) {
	t.Run("create rejection leaves no record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		engineErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Procedure.ProcedureCallFailed", Msg: "No relationships of type `SUPPLIES` found"}
		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil)
		mockDB.EXPECT().
			ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
			Return(nil, gdserr.EngineExecutionFailed("write", engineErr))

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(context.Background(), supplyChainSignature())
		require.Error(t, err)
		assert.True(t, gdserr.Is(err, gdserr.KindProjectionCreateFailed))
		assert.Equal(t, engineErr.Error(), err.Error())

		_, ok := registry.Get("supplyChainGraph")
		assert.False(t, ok)
		assert.Empty(t, registry.List())
	})

	t.Run("cancelled create is treated as absent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		ctx, cancel := context.WithCancel(context.Background())

		gomock.InOrder(
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil),
			mockDB.EXPECT().
				ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
				DoAndReturn(func(ctx context.Context, _ string, _ map[string]any) ([]*neo4j.Record, error) {
					cancel()
					return nil, gdserr.EngineExecutionFailed("write", ctx.Err())
				}),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil),
		)

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(ctx, supplyChainSignature())
		require.Error(t, err)
		assert.True(t, gdserr.Is(err, gdserr.KindEngineExecutionFailed))
		assert.ErrorIs(t, err, context.Canceled)

		_, ok := registry.Get("supplyChainGraph")
		assert.False(t, ok)

		_, err = registry.Ensure(context.Background(), supplyChainSignature())
		require.NoError(t, err)
	})

	t.Run("drop failure surfaces as projection failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		mockDB.EXPECT().
			ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).
			Return(nil, gdserr.EngineExecutionFailed("write", &neo4j.Neo4jError{
				Code: "Neo.ClientError.Procedure.ProcedureNotFound",
				Msg:  "There is no procedure with the name `gds.graph.drop`",
			}))

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(context.Background(), supplyChainSignature())
		require.Error(t, err)
		assert.True(t, gdserr.Is(err, gdserr.KindProjectionCreateFailed))
		assert.Equal(t, http.StatusBadGateway, gdserr.HTTPStatus(err))
	})

	t.Run("open breaker on drop stays unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		unavailable := gdserr.EngineExecutionFailed("write", errors.New("circuit breaker is open"))
		unavailable.Unavailable = true
		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, unavailable)

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(context.Background(), supplyChainSignature())
		require.Error(t, err)
		assert.True(t, gdserr.Is(err, gdserr.KindEngineExecutionFailed))
		assert.Equal(t, http.StatusServiceUnavailable, gdserr.HTTPStatus(err))
	})

	t.Run("transport failure on create is not a rejection", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil)
		mockDB.EXPECT().
			ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
			Return(nil, gdserr.EngineExecutionFailed("write", errors.New("connection reset by peer")))

		registry := gds.NewRegistry(mockDB)
		_, err := registry.Ensure(context.Background(), supplyChainSignature())
		require.Error(t, err)
		assert.True(t, gdserr.Is(err, gdserr.KindEngineExecutionFailed))
		assert.Equal(t, "connection reset by peer", err.Error())
	})
}

func TestRegistryLease(t *testing.T) {
	// engine records which signature is currently projected
	type engine struct {
		mu       sync.Mutex
		weighted bool
		creates  int
	}

	newEngine := func(ctrl *gomock.Controller) (*db.MockService, *engine) {
		mockDB := db.NewMockService(ctrl)
		e := &engine{}
		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil).AnyTimes()
		mockDB.EXPECT().
			ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, params map[string]any) ([]*neo4j.Record, error) {
				supplies := params["relationshipProjection"].(map[string]any)["SUPPLIES"].(map[string]any)
				_, weighted := supplies["properties"]
				e.mu.Lock()
				e.weighted = weighted
				e.creates++
				e.mu.Unlock()
				return createdRow("supplyChainGraph"), nil
			}).
			AnyTimes()
		return mockDB, e
	}

	t.Run("other signature waits for the lease", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB, e := newEngine(ctrl)
		registry := gds.NewRegistry(mockDB)

		weighted := supplyChainSignature().WithWeight("quantity")
		handle, done, err := registry.Acquire(context.Background(), weighted)
		require.NoError(t, err)
		assert.True(t, handle.Signature.Equal(weighted))

		plainDone := make(chan error, 1)
		go func() {
			_, err := registry.Ensure(context.Background(), supplyChainSignature())
			plainDone <- err
		}()

		require.Never(t, func() bool { return len(plainDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
		e.mu.Lock()
		assert.True(t, e.weighted, "the leased projection is still the weighted one")
		assert.Equal(t, 1, e.creates)
		e.mu.Unlock()

		done()
		done()
		require.NoError(t, <-plainDone)

		e.mu.Lock()
		assert.False(t, e.weighted)
		assert.Equal(t, 2, e.creates)
		e.mu.Unlock()
	})

	t.Run("same signature shares the lease", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB, e := newEngine(ctrl)
		registry := gds.NewRegistry(mockDB)

		first, doneFirst, err := registry.Acquire(context.Background(), supplyChainSignature())
		require.NoError(t, err)
		second, doneSecond, err := registry.Acquire(context.Background(), supplyChainSignature())
		require.NoError(t, err)
		doneFirst()
		doneSecond()

		assert.Equal(t, first.Version, second.Version)
		assert.Equal(t, 1, e.creates)
	})

	t.Run("waiter gives up on its deadline", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB, e := newEngine(ctrl)
		registry := gds.NewRegistry(mockDB)

		weighted := supplyChainSignature().WithWeight("quantity")
		_, done, err := registry.Acquire(context.Background(), weighted)
		require.NoError(t, err)
		defer done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = registry.Ensure(ctx, supplyChainSignature())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		current, ok := registry.Get("supplyChainGraph")
		require.True(t, ok)
		assert.True(t, current.Signature.Equal(weighted))
		assert.Equal(t, 1, e.creates)
	})

	t.Run("drop waits for the lease", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB, _ := newEngine(ctrl)
		registry := gds.NewRegistry(mockDB)

		_, done, err := registry.Acquire(context.Background(), supplyChainSignature())
		require.NoError(t, err)

		dropped := make(chan error, 1)
		go func() {
			_, err := registry.Drop(context.Background(), "supplyChainGraph")
			dropped <- err
		}()

		require.Never(t, func() bool { return len(dropped) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
		_, ok := registry.Get("supplyChainGraph")
		assert.True(t, ok)

		done()
		require.NoError(t, <-dropped)
		_, ok = registry.Get("supplyChainGraph")
		assert.False(t, ok)
	})
}

func TestRegistryConcurrentEnsure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := db.NewMockService(ctrl)

	inFlight := make(chan struct{})
	proceed := make(chan struct{})

	mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil).Times(1)
	mockDB.EXPECT().
		ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
		DoAndReturn(func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
			close(inFlight)
			<-proceed
			return createdRow("supplyChainGraph"), nil
		}).
		Times(1)

	registry := gds.NewRegistry(mockDB)

	var wg sync.WaitGroup
	handles := make([]gds.Projection, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		handles[0], errs[0] = registry.Ensure(context.Background(), supplyChainSignature())
	}()

	<-inFlight
	wg.Add(1)
	go func() {
		defer wg.Done()
		handles[1], errs[1] = registry.Ensure(context.Background(), supplyChainSignature())
	}()
	close(proceed)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, handles[0].Version, handles[1].Version)
	assert.Equal(t, handles[0].Name, handles[1].Name)
}

func TestRegistryWaiterCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := db.NewMockService(ctrl)

	inFlight := make(chan struct{})
	proceed := make(chan struct{})

	mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil).Times(1)
	mockDB.EXPECT().
		ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).
		DoAndReturn(func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
			close(inFlight)
			<-proceed
			return createdRow("supplyChainGraph"), nil
		}).
		Times(1)

	registry := gds.NewRegistry(mockDB)

	done := make(chan error, 1)
	go func() {
		_, err := registry.Ensure(context.Background(), supplyChainSignature())
		done <- err
	}()
	<-inFlight

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := registry.Ensure(ctx, supplyChainSignature())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proceed)
	require.NoError(t, <-done)
}

func TestRegistryDrop(t *testing.T) {
	ctx := context.Background()

	t.Run("drop forgets the record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)
		analyticsService := analytics.NewMockService(ctrl)

		gomock.InOrder(
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil),
			mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("supplyChainGraph"), nil),
			mockDB.EXPECT().
				ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), map[string]any{"graphName": "supplyChainGraph"}).
				Return(droppedRow("supplyChainGraph"), nil),
		)
		analyticsService.EXPECT().NewGDSProjCreatedEvent("supplyChainGraph").Times(1)
		analyticsService.EXPECT().NewGDSProjDropEvent("supplyChainGraph").Times(1)
		analyticsService.EXPECT().EmitEvent(gomock.Any()).Times(2)

		registry := gds.NewRegistry(mockDB, gds.WithAnalytics(analyticsService))
		_, err := registry.Ensure(ctx, supplyChainSignature())
		require.NoError(t, err)

		dropped, err := registry.Drop(ctx, "supplyChainGraph")
		require.NoError(t, err)
		assert.True(t, dropped)

		_, ok := registry.Get("supplyChainGraph")
		assert.False(t, ok)
	})

	t.Run("drop of unknown name reports false", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := db.NewMockService(ctrl)

		mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil)

		registry := gds.NewRegistry(mockDB)
		dropped, err := registry.Drop(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, dropped)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := gds.NewRegistry(db.NewMockService(ctrl))

		_, err := registry.Drop(ctx, "")
		assert.True(t, gdserr.Is(err, gdserr.KindInvalidRequest))
	})
}

func TestRegistryList(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockDB := db.NewMockService(ctrl)

	mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(dropFragment), gomock.Any()).Return(nil, nil).AnyTimes()
	mockDB.EXPECT().ExecuteWriteQuery(gomock.Any(), queryContains(projectFragment), gomock.Any()).Return(createdRow("g"), nil).AnyTimes()

	registry := gds.NewRegistry(mockDB)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := registry.Ensure(context.Background(), supplyChainSignature().WithName(name))
		require.NoError(t, err)
	}
	registry.Invalidate("mid")

	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
	assert.True(t, list[1].Stale)
	assert.False(t, list[0].Stale)
}
