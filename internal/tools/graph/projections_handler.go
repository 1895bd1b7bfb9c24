package graph

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
)

// ProjectionsOverview is the list-projections result.
type ProjectionsOverview struct {
	Projections []gds.Projection             `json:"projections"`
	Algorithms  map[gds.AlgorithmKind]string `json:"algorithms"`
}

// ListProjectionsHandler returns the handler for the list-projections tool
func ListProjectionsHandler(deps *tools.ToolDependencies) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := checkDeps(deps, "list-projections"); res != nil {
			return res, nil
		}
		return jsonResult(Overview(deps.Orchestrator)), nil
	}
}

// Overview lists recorded projections and the projection name per algorithm kind.
func Overview(o *gds.Orchestrator) ProjectionsOverview {
	catalog := o.Catalog()
	algorithms := make(map[gds.AlgorithmKind]string, len(catalog))
	for kind, entry := range catalog {
		algorithms[kind] = entry.Projection.Name
	}
	return ProjectionsOverview{
		Projections: o.Projections(),
		Algorithms:  algorithms,
	}
}

// InvalidateProjectionHandler returns the handler for the invalidate-projection tool
func InvalidateProjectionHandler(deps *tools.ToolDependencies) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if res := checkDeps(deps, "invalidate-projection"); res != nil {
			return res, nil
		}

		var args InvalidateProjectionInput
		if err := request.BindArguments(&args); err != nil {
			slog.Error("error binding arguments", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		name := strings.TrimSpace(args.Name)
		if name == "" {
			errMessage := "name parameter is required"
			slog.Error(errMessage)
			return mcp.NewToolResultError(errMessage), nil
		}

		known := deps.Orchestrator.Invalidate(name)
		return jsonResult(map[string]any{"name": name, "stale": known}), nil
	}
}
