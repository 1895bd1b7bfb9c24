// Package graph exposes the analytics orchestrator as MCP tools.
package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
)

// checkDeps emits the usage event and reports missing dependencies as a tool error.
func checkDeps(deps *tools.ToolDependencies, toolName string) *mcp.CallToolResult {
	if deps.Orchestrator == nil {
		errMessage := "analytics orchestrator is not initialized"
		slog.Error(errMessage, "tool", toolName)
		return mcp.NewToolResultError(errMessage)
	}
	if deps.AnalyticsService != nil {
		deps.AnalyticsService.EmitEvent(deps.AnalyticsService.NewToolsEvent(toolName))
	}
	return nil
}

// jsonResult renders v as the tool's text content.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("error formatting tool result", "error", err)
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(data))
}

// errorResult reports an orchestrator failure, prefixed by its kind.
func errorResult(err error) *mcp.CallToolResult {
	if kind := gdserr.KindOf(err); kind != "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", kind, err.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}
