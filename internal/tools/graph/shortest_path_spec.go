package graph

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// NodeSelectorInput identifies one anchor node by a property match
type NodeSelectorInput struct {
	Label    string `json:"label" jsonschema:"description=Node label (e.g. Supplier or Customer)"`
	Property string `json:"property" jsonschema:"description=Property used to find the node (e.g. companyName or contactName)"`
	Value    string `json:"value" jsonschema:"description=Property value; it must match exactly one node"`
}

// ShortestPathInput defines the input parameters for the shortest-path tool
type ShortestPathInput struct {
	Source         *NodeSelectorInput `json:"source,omitempty" jsonschema:"description=Source node. Defaults to the configured supplier"`
	Target         *NodeSelectorInput `json:"target,omitempty" jsonschema:"description=Target node. Defaults to the configured customer"`
	WeightProperty string             `json:"weightProperty,omitempty" jsonschema:"description=Relationship property used as cost (e.g. quantity). Omit for hop count"`
	Form           string             `json:"form,omitempty" jsonschema:"description=cost returns {from to totalCost}; path returns the node names on the route,enum=cost,enum=path"`
}

func ShortestPathSpec() mcp.Tool {
	return mcp.NewTool("shortest-path",
		mcp.WithDescription(`
		Find the shortest supply chain route between two nodes with Dijkstra
		(Supplier -> Product -> Order -> Customer).

		Source and target must each match exactly one node; a selector matching
		no node or several nodes is reported as an error. Without weightProperty
		the cost is the hop count. The supplyChainGraph projection is created on
		demand and re-created when the weight property changes.`),
		mcp.WithInputSchema[ShortestPathInput](),
		mcp.WithTitleAnnotation("Shortest Supply Chain Path"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}
