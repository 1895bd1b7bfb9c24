package graph

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
)

// RunPageRankHandler returns the handler for the run-pagerank tool
func RunPageRankHandler(deps *tools.ToolDependencies) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunPageRank(ctx, request, deps)
	}
}

func handleRunPageRank(ctx context.Context, request mcp.CallToolRequest, deps *tools.ToolDependencies) (*mcp.CallToolResult, error) {
	if res := checkDeps(deps, "run-pagerank"); res != nil {
		return res, nil
	}

	var args RunPageRankInput
	if err := request.BindArguments(&args); err != nil {
		slog.Error("error binding arguments", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	records, err := deps.Orchestrator.Run(ctx, gds.AlgorithmRequest{
		Kind:          gds.KindCentrality,
		Limit:         args.Limit,
		MaxIterations: args.MaxIterations,
		DampingFactor: args.DampingFactor,
	})
	if err != nil {
		slog.Error("error running pagerank", "error", err)
		return errorResult(err), nil
	}
	return jsonResult(records), nil
}
