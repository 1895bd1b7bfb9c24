// Package queries holds the plain read queries served outside the analytics
// orchestrator.
package queries

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
)

const (
	// MaxProducts caps the products-by-category listing.
	MaxProducts = 10

	pingQuery = `RETURN "Neo4j connection successful" AS message`

	productsByCategoryQuery = `
		MATCH (p:Product)-[:PART_OF]->(c:Category)
		RETURN p.productName AS productName, c.categoryName AS categoryName
		ORDER BY categoryName, productName
		LIMIT $limit
	`

	gdsVersionQuery = `RETURN gds.version() AS version`
)

// ProductCategory is one row of the products-by-category listing.
type ProductCategory struct {
	ProductName  string `json:"productName"`
	CategoryName string `json:"categoryName"`
}

// Ping runs a trivial query and returns the engine's greeting.
func Ping(ctx context.Context, db database.Service) (string, error) {
	records, err := db.ExecuteReadQuery(ctx, pingQuery, nil)
	if err != nil {
		slog.Error("connectivity probe failed", "error", err)
		return "", err
	}
	if len(records) == 0 {
		return "", gdserr.MalformedRow("ping", "connectivity probe returned no rows")
	}
	message, ok := records[0].Get("message")
	if !ok {
		return "", gdserr.MalformedRow("ping", "connectivity probe row has no message column")
	}
	s, ok := message.(string)
	if !ok {
		return "", gdserr.MalformedRow("ping", fmt.Sprintf("message is %T, want string", message))
	}
	return s, nil
}

// ClampLimit bounds a requested product limit to 1..MaxProducts. Zero or
// negative selects MaxProducts.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxProducts {
		return MaxProducts
	}
	return limit
}

// ProductsByCategory lists products with their category, at most MaxProducts.
func ProductsByCategory(ctx context.Context, db database.Service, limit int) ([]ProductCategory, error) {
	limit = ClampLimit(limit)

	records, err := db.ExecuteReadQuery(ctx, productsByCategoryQuery, map[string]any{"limit": limit})
	if err != nil {
		slog.Error("failed to list products by category", "error", err)
		return nil, err
	}

	out := make([]ProductCategory, 0, len(records))
	for i, record := range records {
		product, err := stringColumn(record.Get, "productName")
		if err != nil {
			return nil, gdserr.MalformedRow("products-by-category", fmt.Sprintf("row %d: %v", i, err))
		}
		category, err := stringColumn(record.Get, "categoryName")
		if err != nil {
			return nil, gdserr.MalformedRow("products-by-category", fmt.Sprintf("row %d: %v", i, err))
		}
		out = append(out, ProductCategory{ProductName: product, CategoryName: category})
	}
	return out, nil
}

// GDSVersion returns the installed Graph Data Science version. An error
// means the plugin is missing or the engine is unreachable.
func GDSVersion(ctx context.Context, db database.Service) (string, error) {
	records, err := db.ExecuteReadQuery(ctx, gdsVersionQuery, nil)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", gdserr.MalformedRow("gds-version", "gds.version() returned no rows")
	}
	version, _ := records[0].Get("version")
	s, ok := version.(string)
	if !ok {
		return "", gdserr.MalformedRow("gds-version", fmt.Sprintf("version is %T, want string", version))
	}
	return s, nil
}

func stringColumn(get func(string) (any, bool), key string) (string, error) {
	v, ok := get(key)
	if !ok {
		return "", fmt.Errorf("missing column %q", key)
	}
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("column %q is %T, want string", key, v)
	}
}
