package graph

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
)

// RunLouvainHandler returns the handler for the run-louvain tool
func RunLouvainHandler(deps *tools.ToolDependencies) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunLouvain(ctx, request, deps)
	}
}

func handleRunLouvain(ctx context.Context, request mcp.CallToolRequest, deps *tools.ToolDependencies) (*mcp.CallToolResult, error) {
	if res := checkDeps(deps, "run-louvain"); res != nil {
		return res, nil
	}

	var args RunLouvainInput
	if err := request.BindArguments(&args); err != nil {
		slog.Error("error binding arguments", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	records, err := deps.Orchestrator.Run(ctx, gds.AlgorithmRequest{
		Kind:  gds.KindCommunity,
		Limit: args.Limit,
		Order: gds.Order(args.Order),
	})
	if err != nil {
		slog.Error("error running louvain", "error", err)
		return errorResult(err), nil
	}
	return jsonResult(records), nil
}
