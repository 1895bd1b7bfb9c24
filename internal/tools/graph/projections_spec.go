package graph

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// InvalidateProjectionInput defines the input parameters for the invalidate-projection tool
type InvalidateProjectionInput struct {
	Name string `json:"name" jsonschema:"description=Projection name (e.g. supplyChainGraph)"`
}

func ListProjectionsSpec() mcp.Tool {
	return mcp.NewTool("list-projections",
		mcp.WithDescription(`
		List the in-memory graph projections this server created, with their
		node labels, relationship types, counts and staleness, plus the
		projection each algorithm uses.`),
		mcp.WithTitleAnnotation("List Graph Projections"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func InvalidateProjectionSpec() mcp.Tool {
	return mcp.NewTool("invalidate-projection",
		mcp.WithDescription(`
		Mark a projection stale after the underlying data changed. The next
		algorithm run that uses it drops and re-creates it.`),
		mcp.WithInputSchema[InvalidateProjectionInput](),
		mcp.WithTitleAnnotation("Invalidate Graph Projection"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}
