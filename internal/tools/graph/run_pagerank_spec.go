package graph

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// RunPageRankInput defines the input parameters for the run-pagerank tool
type RunPageRankInput struct {
	Limit         int     `json:"limit,omitempty" jsonschema:"description=Maximum number of customers to return (0 returns all)"`
	MaxIterations int     `json:"maxIterations,omitempty" jsonschema:"description=PageRank iteration cap (engine default when omitted)"`
	DampingFactor float64 `json:"dampingFactor,omitempty" jsonschema:"description=PageRank damping factor in [0 and 1) (engine default when omitted)"`
}

func RunPageRankSpec() mcp.Tool {
	return mcp.NewTool("run-pagerank",
		mcp.WithDescription(`
		Rank customers by PageRank over the customer/order purchase graph.

		The customerOrderGraph projection is created on demand and reused across
		calls. Returns [{customer, score}] ordered by score, highest first.`),
		mcp.WithInputSchema[RunPageRankInput](),
		mcp.WithTitleAnnotation("Run PageRank"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}
