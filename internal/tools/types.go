package tools

import (
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/analytics"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
)

// ToolDependencies contains all dependencies needed by tools
type ToolDependencies struct {
	DBService        database.Service
	AnalyticsService analytics.Service
	Orchestrator     *gds.Orchestrator
}
