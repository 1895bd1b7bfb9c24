package cypher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/queries"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
)

// GetSchemaHandler returns a handler function for the get-schema tool
func GetSchemaHandler(deps *tools.ToolDependencies) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetSchema(ctx, deps)
	}
}

func handleGetSchema(ctx context.Context, deps *tools.ToolDependencies) (*mcp.CallToolResult, error) {
	if deps.DBService == nil {
		errMessage := "database service is not initialized"
		slog.Error(errMessage)
		return mcp.NewToolResultError(errMessage), nil
	}
	if deps.AnalyticsService == nil {
		errMessage := "analytics service is not initialized"
		slog.Error(errMessage)
		return mcp.NewToolResultError(errMessage), nil
	}

	deps.AnalyticsService.EmitEvent(deps.AnalyticsService.NewToolsEvent("get-schema"))
	slog.Info("retrieving schema from the database", "database", deps.DBService.GetDatabaseName())

	schema, err := queries.Schema(ctx, deps.DBService)
	if err != nil {
		slog.Error("failed to retrieve schema", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	if schema.Empty() {
		slog.Info("database is empty, no schema to return", "database", deps.DBService.GetDatabaseName())
		return mcp.NewToolResultText(fmt.Sprintf("The get-schema tool executed successfully; however, since the Neo4j database '%s' contains no data, no schema information was returned.", deps.DBService.GetDatabaseName())), nil
	}

	markdown := formatSchemaAsMarkdown(schema)
	slog.Info("returning schema", "schema_size", len(markdown))
	return mcp.NewToolResultText(markdown), nil
}

func formatSchemaAsMarkdown(schema *queries.GraphSchema) string {
	var md strings.Builder

	md.WriteString("# Supply Chain Graph Schema\n\n")
	md.WriteString("Suppliers supply products, orders contain products and customers purchase orders.\n\n")

	md.WriteString("## 1. Node Labels and Properties\n\n")
	for _, label := range sortedKeys(schema.Nodes) {
		md.WriteString(fmt.Sprintf("### %s\n\n", label))
		writeProperties(&md, schema.Nodes[label])
	}

	if len(schema.Relationships) > 0 {
		md.WriteString("## 2. Relationships\n\n")
		for _, rel := range schema.Relationships {
			md.WriteString(fmt.Sprintf("### (:%s)-[:%s]->(:%s)\n\n", rel.From, rel.Type, rel.To))
			writeProperties(&md, rel.Properties)
		}
	}
	return md.String()
}

func writeProperties(md *strings.Builder, props map[string]string) {
	if len(props) == 0 {
		return
	}
	md.WriteString("*Properties:*\n\n")
	for _, name := range sortedKeys(props) {
		md.WriteString(fmt.Sprintf("  - `%s` (%s)\n", name, props[name]))
	}
	md.WriteString("\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
