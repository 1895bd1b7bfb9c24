package queries

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/database"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

const (
	// schemaVisualizationQuery returns one row of virtual label nodes and
	// relationship-type relationships.
	schemaVisualizationQuery = `CALL db.schema.visualization()`

	nodePropertiesQuery = `
		CALL db.schema.nodeTypeProperties()
		YIELD nodeLabels, propertyName, propertyTypes
		RETURN nodeLabels, propertyName, propertyTypes
	`

	relPropertiesQuery = `
		CALL db.schema.relTypeProperties()
		YIELD relType, propertyName, propertyTypes
		RETURN relType, propertyName, propertyTypes
	`
)

// GraphSchema describes the labels and relationship types a caller can use
// in selectors and projections.
type GraphSchema struct {
	// Nodes maps each label to its properties and their first reported type.
	Nodes         map[string]map[string]string `json:"nodes"`
	Relationships []RelationshipSchema         `json:"relationships"`
}

// RelationshipSchema is one (from)-[type]->(to) pattern present in the data.
type RelationshipSchema struct {
	Type       string            `json:"type"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Empty reports whether the database holds no labelled data.
func (s *GraphSchema) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Relationships) == 0
}

// Schema introspects the database with the native schema procedures.
func Schema(ctx context.Context, db database.Service) (*GraphSchema, error) {
	visualization, err := db.ExecuteReadQuery(ctx, schemaVisualizationQuery, nil)
	if err != nil {
		return nil, err
	}
	nodeProps, err := db.ExecuteReadQuery(ctx, nodePropertiesQuery, nil)
	if err != nil {
		return nil, err
	}
	relProps, err := db.ExecuteReadQuery(ctx, relPropertiesQuery, nil)
	if err != nil {
		return nil, err
	}

	schema := &GraphSchema{
		Nodes:         propertyTypes(nodeProps, "nodeLabels"),
		Relationships: make([]RelationshipSchema, 0),
	}
	if len(visualization) == 0 {
		return schema, nil
	}

	nodes, rels, err := visualizationGraph(visualization[0])
	if err != nil {
		return nil, err
	}

	labels := make(map[int64]string, len(nodes))
	for _, node := range nodes {
		name, ok := node.Props["name"].(string)
		if !ok {
			slog.Warn("skipping schema node without name", "props", node.Props)
			continue
		}
		labels[node.Id] = name
		if _, ok := schema.Nodes[name]; !ok {
			schema.Nodes[name] = map[string]string{}
		}
	}

	relTypes := propertyTypes(relProps, "relType")
	for _, rel := range rels {
		relType, _ := rel.Props["name"].(string)
		from, to := labels[rel.StartId], labels[rel.EndId]
		if relType == "" || from == "" || to == "" {
			continue
		}
		schema.Relationships = append(schema.Relationships, RelationshipSchema{
			Type:       relType,
			From:       from,
			To:         to,
			Properties: relTypes[relType],
		})
	}
	sort.Slice(schema.Relationships, func(i, j int) bool {
		a, b := schema.Relationships[i], schema.Relationships[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return schema, nil
}

func visualizationGraph(record *neo4j.Record) ([]dbtype.Node, []dbtype.Relationship, error) {
	nodesRaw, _ := record.Get("nodes")
	relsRaw, _ := record.Get("relationships")

	nodeList, ok := nodesRaw.([]any)
	if !ok {
		return nil, nil, gdserr.MalformedRow("schema", fmt.Sprintf("nodes is %T, want list", nodesRaw))
	}
	relList, ok := relsRaw.([]any)
	if !ok {
		return nil, nil, gdserr.MalformedRow("schema", fmt.Sprintf("relationships is %T, want list", relsRaw))
	}

	nodes := make([]dbtype.Node, 0, len(nodeList))
	for _, v := range nodeList {
		if node, ok := v.(dbtype.Node); ok {
			nodes = append(nodes, node)
		}
	}
	rels := make([]dbtype.Relationship, 0, len(relList))
	for _, v := range relList {
		if rel, ok := v.(dbtype.Relationship); ok {
			rels = append(rels, rel)
		}
	}
	return nodes, rels, nil
}

// propertyTypes folds schema property rows into owner -> property -> type.
// ownerKey is "nodeLabels" (a list, first label wins) or "relType" (a string
// such as ":`ORDERS`").
func propertyTypes(records []*neo4j.Record, ownerKey string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, record := range records {
		ownerRaw, _ := record.Get(ownerKey)
		nameRaw, _ := record.Get("propertyName")
		typesRaw, _ := record.Get("propertyTypes")

		var owner string
		switch v := ownerRaw.(type) {
		case string:
			owner = trimRelType(v)
		case []any:
			if len(v) > 0 {
				owner, _ = v[0].(string)
			}
		}
		name, _ := nameRaw.(string)
		if owner == "" {
			continue
		}
		if out[owner] == nil {
			out[owner] = map[string]string{}
		}
		if name == "" {
			continue
		}
		propType := ""
		if types, ok := typesRaw.([]any); ok && len(types) > 0 {
			propType, _ = types[0].(string)
		}
		out[owner][name] = propType
	}
	return out
}

// trimRelType turns ":`ORDERS`" into "ORDERS".
func trimRelType(s string) string {
	if len(s) > 0 && s[0] == ':' {
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		s = s[1 : len(s)-1]
	}
	return s
}
