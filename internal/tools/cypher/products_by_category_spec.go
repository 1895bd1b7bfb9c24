package cypher

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ProductsByCategoryInput defines the input parameters for the products-by-category tool
type ProductsByCategoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Number of products to return (1 to 10; default 10)"`
}

func ProductsByCategorySpec() mcp.Tool {
	return mcp.NewTool("products-by-category",
		mcp.WithDescription(`
		List products together with the category they are PART_OF.

		Returns at most 10 rows of {productName, categoryName}. This is a plain
		read query and does not use any graph projection.`),
		mcp.WithInputSchema[ProductsByCategoryInput](),
		mcp.WithTitleAnnotation("Products by Category"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}
