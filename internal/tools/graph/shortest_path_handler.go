package graph

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
)

// ShortestPathHandler returns the handler for the shortest-path tool
func ShortestPathHandler(deps *tools.ToolDependencies) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleShortestPath(ctx, request, deps)
	}
}

func handleShortestPath(ctx context.Context, request mcp.CallToolRequest, deps *tools.ToolDependencies) (*mcp.CallToolResult, error) {
	if res := checkDeps(deps, "shortest-path"); res != nil {
		return res, nil
	}

	var args ShortestPathInput
	if err := request.BindArguments(&args); err != nil {
		slog.Error("error binding arguments", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	form := gds.Form(args.Form)
	if form == "" {
		form = gds.FormCost
	}

	req := gds.AlgorithmRequest{Kind: gds.KindShortestPath, Form: form}
	if entry, err := deps.Orchestrator.Catalog().Lookup(gds.KindShortestPath); err == nil {
		req = entry.DefaultRequest(form)
	}
	if args.Source != nil {
		req.Source = &gds.Selector{Label: args.Source.Label, Property: args.Source.Property, Value: args.Source.Value}
	}
	if args.Target != nil {
		req.Target = &gds.Selector{Label: args.Target.Label, Property: args.Target.Property, Value: args.Target.Value}
	}
	if args.WeightProperty != "" {
		req.WeightProperty = args.WeightProperty
	}

	records, err := deps.Orchestrator.Run(ctx, req)
	if err != nil {
		slog.Error("error running shortest path", "error", err)
		return errorResult(err), nil
	}
	return jsonResult(records), nil
}
