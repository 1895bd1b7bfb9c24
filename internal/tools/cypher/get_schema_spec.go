package cypher

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func GetSchemaSpec() mcp.Tool {
	return mcp.NewTool("get-schema",
		mcp.WithDescription(`
		Retrieve the supply chain graph schema.

		Returns the node labels with their property types and every
		(from)-[TYPE]->(to) relationship pattern present in the data. Use it
		to pick the label and property of a shortest-path selector or a
		weight property.

		If the database contains no data, no schema information is returned.`),
		mcp.WithTitleAnnotation("Get Supply Chain Schema"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}
