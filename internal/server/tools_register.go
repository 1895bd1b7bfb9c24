package server

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools/cypher"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools/graph"
)

// registerTools registers all enabled MCP tools with the MCP server.
// In read-only mode only tools annotated as read-only are registered, and
// analytics tools are left out entirely when the engine has no GDS plugin.
func (s *Server) registerTools() error {
	filteredTools := s.getEnabledTools()
	s.MCPServer.AddTools(filteredTools...)
	return nil
}

type toolFilter func(tools []ToolDefinition) []ToolDefinition

type toolCategory int

const (
	cypherCategory toolCategory = 0
	gdsCategory    toolCategory = 1
)

type ToolDefinition struct {
	category   toolCategory
	definition server.ServerTool
	readonly   bool
}

func (s *Server) getEnabledTools() []server.ServerTool {
	filters := make([]toolFilter, 0)

	if s.config != nil && s.config.ReadOnly {
		filters = append(filters, filterWriteTools)
	}
	if !s.gdsInstalled {
		filters = append(filters, filterGDSTools)
	}
	deps := &tools.ToolDependencies{
		DBService:        s.dbService,
		AnalyticsService: s.anService,
		Orchestrator:     s.orchestrator,
	}
	toolDefs := getAllToolsDefs(deps)

	for _, filter := range filters {
		toolDefs = filter(toolDefs)
	}
	enabledTools := make([]server.ServerTool, 0, len(toolDefs))
	for _, toolDef := range toolDefs {
		enabledTools = append(enabledTools, toolDef.definition)
	}
	return enabledTools
}

func filterWriteTools(tools []ToolDefinition) []ToolDefinition {
	readOnlyTools := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t.readonly {
			readOnlyTools = append(readOnlyTools, t)
		}
	}
	return readOnlyTools
}

func filterGDSTools(tools []ToolDefinition) []ToolDefinition {
	nonGDSTools := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t.category != gdsCategory {
			nonGDSTools = append(nonGDSTools, t)
		}
	}
	return nonGDSTools
}

// getAllToolsDefs returns all available tools with their specs and handlers
func getAllToolsDefs(deps *tools.ToolDependencies) []ToolDefinition {
	return []ToolDefinition{
		{
			category: cypherCategory,
			definition: server.ServerTool{
				Tool:    cypher.GetSchemaSpec(),
				Handler: cypher.GetSchemaHandler(deps),
			},
			readonly: true,
		},
		{
			category: cypherCategory,
			definition: server.ServerTool{
				Tool:    cypher.ProductsByCategorySpec(),
				Handler: cypher.ProductsByCategoryHandler(deps),
			},
			readonly: true,
		},
		// GDS Category/Section
		{
			category: gdsCategory,
			definition: server.ServerTool{
				Tool:    graph.ShortestPathSpec(),
				Handler: graph.ShortestPathHandler(deps),
			},
			readonly: true,
		},
		{
			category: gdsCategory,
			definition: server.ServerTool{
				Tool:    graph.RunPageRankSpec(),
				Handler: graph.RunPageRankHandler(deps),
			},
			readonly: true,
		},
		{
			category: gdsCategory,
			definition: server.ServerTool{
				Tool:    graph.RunLouvainSpec(),
				Handler: graph.RunLouvainHandler(deps),
			},
			readonly: true,
		},
		{
			category: gdsCategory,
			definition: server.ServerTool{
				Tool:    graph.ListProjectionsSpec(),
				Handler: graph.ListProjectionsHandler(deps),
			},
			readonly: true,
		},
		{
			category: gdsCategory,
			definition: server.ServerTool{
				Tool:    graph.InvalidateProjectionSpec(),
				Handler: graph.InvalidateProjectionHandler(deps),
			},
			readonly: false,
		},
	}
}
