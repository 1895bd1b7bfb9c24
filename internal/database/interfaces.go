package database

//go:generate mockgen -destination=mocks/mock_database.go -package=database_mocks github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database Service

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Service is the graph engine adapter. Every call opens its own session and
// releases it before returning.
type Service interface {
	// VerifyConnectivity checks the driver can reach the engine.
	VerifyConnectivity(ctx context.Context) error

	// ExecuteReadQuery runs a read-only command (algorithm streams, plain reads).
	ExecuteReadQuery(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

	// ExecuteWriteQuery runs a command that mutates engine state (projection create/drop).
	ExecuteWriteQuery(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

	// Neo4jRecordsToJSON renders records as a JSON array of objects.
	Neo4jRecordsToJSON(records []*neo4j.Record) (string, error)

	// GetDatabaseName returns the target database.
	GetDatabaseName() string

	// Close releases the underlying driver.
	Close(ctx context.Context) error
}
