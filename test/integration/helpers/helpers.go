// Package helpers provides the shared fixtures of the integration suite.
package helpers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/projections"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Database is the database every integration test runs against.
const Database = "neo4j"

// SeedQuery loads a Northwind fragment: two suppliers, three products, two
// orders and two customers.
const SeedQuery = `
	CREATE (tokyo:Supplier {companyName: "Tokyo Traders"})
	CREATE (exotic:Supplier {companyName: "Exotic Liquids"})
	CREATE (beverages:Category {categoryName: "Beverages"})
	CREATE (seafood:Category {categoryName: "Seafood"})
	CREATE (ikura:Product {productName: "Ikura"})-[:PART_OF]->(seafood)
	CREATE (chai:Product {productName: "Chai"})-[:PART_OF]->(beverages)
	CREATE (chang:Product {productName: "Chang"})-[:PART_OF]->(beverages)
	CREATE (tokyo)-[:SUPPLIES]->(ikura)
	CREATE (exotic)-[:SUPPLIES]->(chai)
	CREATE (exotic)-[:SUPPLIES]->(chang)
	CREATE (o1:Order {orderID: "10248"})-[:ORDERS {quantity: 12}]->(ikura)
	CREATE (o1)-[:ORDERS {quantity: 5}]->(chai)
	CREATE (o2:Order {orderID: "10249"})-[:ORDERS {quantity: 40}]->(chang)
	CREATE (ana:Customer {companyName: "Ana Trujillo Emparedados y helados", contactName: "Ana Trujillo"})-[:PURCHASED]->(o1)
	CREATE (vins:Customer {companyName: "Vins et alcools Chevalier", contactName: "Paul Henriot"})-[:PURCHASED]->(o2)
	CREATE (ana)-[:PURCHASED]->(o2)
`

// TestContext bundles the tool dependencies for one test.
type TestContext struct {
	T    *testing.T
	Ctx  context.Context
	Deps *tools.ToolDependencies
}

// NewTestContext builds tool dependencies over driver with analytics disabled
// and a fresh orchestrator using the embedded catalog.
func NewTestContext(t *testing.T, driver neo4j.DriverWithContext) *TestContext {
	t.Helper()

	dbService, err := database.NewNeo4jService(driver, Database)
	if err != nil {
		t.Fatalf("failed to create database service: %v", err)
	}
	catalog, err := gds.LoadCatalog(projections.ConfigFiles, "config", "")
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	anService := analytics.NewService("", nil)

	return &TestContext{
		T:   t,
		Ctx: context.Background(),
		Deps: &tools.ToolDependencies{
			DBService:        dbService,
			AnalyticsService: anService,
			Orchestrator:     gds.NewOrchestrator(dbService, catalog, gds.Options{Analytics: anService}),
		},
	}
}

// CallTool invokes handler with args and fails the test on a tool error.
func (tc *TestContext) CallTool(handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	tc.T.Helper()

	res, err := handler(tc.Ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}})
	if err != nil {
		tc.T.Fatalf("tool call failed: %v", err)
	}
	if res.IsError {
		tc.T.Fatalf("tool returned an error: %s", TextOf(res))
	}
	return res
}

// ParseJSONResponse decodes the text content of res into v.
func (tc *TestContext) ParseJSONResponse(res *mcp.CallToolResult, v any) {
	tc.T.Helper()
	if err := json.Unmarshal([]byte(TextOf(res)), v); err != nil {
		tc.T.Fatalf("failed to parse tool response %q: %v", TextOf(res), err)
	}
}

// TextOf returns the first text content of res.
func TextOf(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
