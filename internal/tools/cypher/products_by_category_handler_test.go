package cypher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	analytics "github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics/mocks"
	db "github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database/mocks"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools/cypher"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = "products-by-category"
	req.Params.Arguments = args
	return req
}

func TestProductsByCategoryHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyticsService := analytics.NewMockService(ctrl)
	analyticsService.EXPECT().NewToolsEvent("products-by-category").AnyTimes()
	analyticsService.EXPECT().EmitEvent(gomock.Any()).AnyTimes()

	t.Run("returns products as JSON", func(t *testing.T) {
		mockDB := db.NewMockService(ctrl)
		mockDB.EXPECT().GetDatabaseName().Return("northwind").AnyTimes()
		mockDB.EXPECT().
			ExecuteReadQuery(gomock.Any(), gomock.Any(), map[string]any{"limit": 2}).
			Return([]*neo4j.Record{
				{Keys: []string{"productName", "categoryName"}, Values: []any{"Chai", "Beverages"}},
				{Keys: []string{"productName", "categoryName"}, Values: []any{"Chang", "Beverages"}},
			}, nil)

		deps := &tools.ToolDependencies{DBService: mockDB, AnalyticsService: analyticsService}
		result, err := cypher.ProductsByCategoryHandler(deps)(context.Background(), callRequest(map[string]any{"limit": 2}))
		require.NoError(t, err)
		require.NotNil(t, result)
		require.False(t, result.IsError)

		text := result.Content[0].(mcp.TextContent).Text
		assert.JSONEq(t, `[{"productName":"Chai","categoryName":"Beverages"},{"productName":"Chang","categoryName":"Beverages"}]`, text)
	})

	t.Run("database failure is a tool error", func(t *testing.T) {
		mockDB := db.NewMockService(ctrl)
		mockDB.EXPECT().GetDatabaseName().Return("northwind").AnyTimes()
		mockDB.EXPECT().
			ExecuteReadQuery(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection failed"))

		deps := &tools.ToolDependencies{DBService: mockDB, AnalyticsService: analyticsService}
		result, err := cypher.ProductsByCategoryHandler(deps)(context.Background(), callRequest(nil))
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.IsError)
	})

	t.Run("nil database service", func(t *testing.T) {
		deps := &tools.ToolDependencies{AnalyticsService: analyticsService}
		result, err := cypher.ProductsByCategoryHandler(deps)(context.Background(), callRequest(nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("nil analytics service", func(t *testing.T) {
		deps := &tools.ToolDependencies{DBService: db.NewMockService(ctrl)}
		result, err := cypher.ProductsByCategoryHandler(deps)(context.Background(), callRequest(nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}
