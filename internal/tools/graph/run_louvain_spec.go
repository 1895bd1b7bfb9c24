package graph

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// RunLouvainInput defines the input parameters for the run-louvain tool
type RunLouvainInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of customers to return (0 returns all)"`
	Order string `json:"order,omitempty" jsonschema:"description=Ordering by communityId: desc (default) or asc,enum=desc,enum=asc"`
}

func RunLouvainSpec() mcp.Tool {
	return mcp.NewTool("run-louvain",
		mcp.WithDescription(`
		Detect customer communities with Louvain over customers, orders and products.

		Customers buying the same products end up in the same community. The
		customerProductGraph projection is created on demand. Returns
		[{customer, communityId}] ordered by communityId.`),
		mcp.WithInputSchema[RunLouvainInput](),
		mcp.WithTitleAnnotation("Run Louvain"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}
