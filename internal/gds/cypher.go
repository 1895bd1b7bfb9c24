package gds

import (
	"fmt"
	"strings"
)

const (
	// projectGraphQuery materializes a named projection. The relationship
	// projection is passed as a parameter map, so only labels reach the
	// engine as values.
	projectGraphQuery = `
		CALL gds.graph.project($graphName, $nodeProjection, $relationshipProjection)
		YIELD graphName, nodeCount, relationshipCount
		RETURN graphName, nodeCount, relationshipCount
	`

	// dropGraphQuery releases a projection; missing graphs yield no rows.
	dropGraphQuery = `
		CALL gds.graph.drop($graphName, false)
		YIELD graphName
		RETURN graphName
	`

	// dijkstraQuery streams a single source-target shortest path and renders
	// every node on it by the first non-null display property.
	dijkstraQuery = `
		CALL gds.shortestPath.dijkstra.stream($graphName, $config)
		YIELD sourceNode, targetNode, totalCost, nodeIds
		RETURN gds.util.asNode(sourceNode)[$sourceDisplay] AS from,
		       gds.util.asNode(targetNode)[$targetDisplay] AS to,
		       totalCost,
		       [nodeId IN nodeIds |
		           head([p IN $displayProperties WHERE gds.util.asNode(nodeId)[p] IS NOT NULL |
		               toString(gds.util.asNode(nodeId)[p])] + [toString(nodeId)])] AS path
	`
)

// defaultWeightValue is used for relationships lacking the weight property.
const defaultWeightValue = 1.0

// ValidIdentifier reports whether s can be used as a label, relationship
// type or property name without quoting surprises.
func ValidIdentifier(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// quoteIdentifier backtick-quotes a validated identifier.
func quoteIdentifier(s string) string {
	return "`" + s + "`"
}

// projectionParams builds the parameters for projectGraphQuery.
func projectionParams(sig Signature) map[string]any {
	rels := make(map[string]any, len(sig.Relationships))
	for _, rel := range sig.Relationships {
		spec := map[string]any{
			"type":        rel.Type,
			"orientation": string(rel.Orientation.normalized()),
		}
		if rel.WeightProperty != "" {
			spec["properties"] = map[string]any{
				rel.WeightProperty: map[string]any{
					"property":     rel.WeightProperty,
					"defaultValue": defaultWeightValue,
				},
			}
		}
		rels[rel.Type] = spec
	}
	return map[string]any{
		"graphName":              sig.Name,
		"nodeProjection":         append([]string(nil), sig.NodeLabels...),
		"relationshipProjection": rels,
	}
}

// selectorQuery matches at most two nodes for a selector so uniqueness can
// be checked without scanning every match.
func selectorQuery(sel *Selector) string {
	return fmt.Sprintf(`
		MATCH (n:%s)
		WHERE n[$property] = $value
		RETURN id(n) AS nodeId
		LIMIT 2
	`, quoteIdentifier(sel.Label))
}

// rankedStreamQuery builds the streaming query shared by centrality and
// community detection: stream, keep nodes of resultLabel, order by column.
func rankedStreamQuery(procedure, column, resultLabel string, order Order, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("CALL %s($graphName, $config)\n", procedure))
	b.WriteString(fmt.Sprintf("YIELD nodeId, %s\n", column))
	b.WriteString(fmt.Sprintf("WITH gds.util.asNode(nodeId) AS node, %s\n", column))
	b.WriteString(fmt.Sprintf("WHERE node:%s\n", quoteIdentifier(resultLabel)))
	b.WriteString(fmt.Sprintf("RETURN node[$displayProperty] AS customer, %s\n", column))
	b.WriteString(fmt.Sprintf("ORDER BY %s %s", column, order.cypher()))
	if limit > 0 {
		b.WriteString("\nLIMIT $limit")
	}
	return b.String()
}

func pageRankQuery(resultLabel string, order Order, limit int) string {
	return rankedStreamQuery("gds.pageRank.stream", "score", resultLabel, order, limit)
}

func louvainQuery(resultLabel string, order Order, limit int) string {
	return rankedStreamQuery("gds.louvain.stream", "communityId", resultLabel, order, limit)
}
