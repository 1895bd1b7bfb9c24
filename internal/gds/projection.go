package gds

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Orientation is the GDS relationship orientation.
type Orientation string

const (
	Natural    Orientation = "NATURAL"
	Reverse    Orientation = "REVERSE"
	Undirected Orientation = "UNDIRECTED"
)

func (o Orientation) normalized() Orientation {
	if o == "" {
		return Natural
	}
	return Orientation(strings.ToUpper(string(o)))
}

// RelationshipProjection describes how one relationship type is projected.
type RelationshipProjection struct {
	Type           string      `yaml:"type" json:"type"`
	Orientation    Orientation `yaml:"orientation,omitempty" json:"orientation"`
	WeightProperty string      `yaml:"weight_property,omitempty" json:"weightProperty,omitempty"`
}

// Signature is the (name, node labels, relationship types) identity of a
// projection. Two signatures with the same name but different composition
// cannot coexist in the engine.
type Signature struct {
	Name          string                   `yaml:"name" json:"name"`
	NodeLabels    []string                 `yaml:"node_labels" json:"nodeLabels"`
	Relationships []RelationshipProjection `yaml:"relationships" json:"relationships"`
}

// Validate checks labels and relationship types are usable identifiers.
func (s Signature) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("projection name is required")
	}
	if len(s.NodeLabels) == 0 {
		return fmt.Errorf("projection %q needs at least one node label", s.Name)
	}
	for _, label := range s.NodeLabels {
		if !ValidIdentifier(label) {
			return fmt.Errorf("projection %q has invalid node label %q", s.Name, label)
		}
	}
	if len(s.Relationships) == 0 {
		return fmt.Errorf("projection %q needs at least one relationship type", s.Name)
	}
	seen := make(map[string]bool, len(s.Relationships))
	for _, rel := range s.Relationships {
		if !ValidIdentifier(rel.Type) {
			return fmt.Errorf("projection %q has invalid relationship type %q", s.Name, rel.Type)
		}
		if seen[rel.Type] {
			return fmt.Errorf("projection %q lists relationship type %q twice", s.Name, rel.Type)
		}
		seen[rel.Type] = true
		switch rel.Orientation.normalized() {
		case Natural, Reverse, Undirected:
		default:
			return fmt.Errorf("projection %q has invalid orientation %q for %s", s.Name, rel.Orientation, rel.Type)
		}
		if rel.WeightProperty != "" && !ValidIdentifier(rel.WeightProperty) {
			return fmt.Errorf("projection %q has invalid weight property %q", s.Name, rel.WeightProperty)
		}
	}
	return nil
}

// Equal compares node labels as a set and relationships keyed by type.
func (s Signature) Equal(other Signature) bool {
	return s.key() == other.key()
}

// key renders a canonical form independent of declaration order.
func (s Signature) key() string {
	labels := append([]string(nil), s.NodeLabels...)
	sort.Strings(labels)
	labels = dedupe(labels)

	rels := make([]string, 0, len(s.Relationships))
	for _, rel := range s.Relationships {
		rels = append(rels, fmt.Sprintf("%s/%s/%s", rel.Type, rel.Orientation.normalized(), rel.WeightProperty))
	}
	sort.Strings(rels)

	return s.Name + "|" + strings.Join(labels, ",") + "|" + strings.Join(rels, ",")
}

// WithWeight returns a copy where every relationship carries weightProperty.
// An empty weightProperty returns an unweighted copy.
func (s Signature) WithWeight(weightProperty string) Signature {
	out := s.clone()
	for i := range out.Relationships {
		out.Relationships[i].WeightProperty = weightProperty
	}
	return out
}

// WithName returns a copy under a different projection name.
func (s Signature) WithName(name string) Signature {
	out := s.clone()
	out.Name = name
	return out
}

func (s Signature) clone() Signature {
	return Signature{
		Name:          s.Name,
		NodeLabels:    append([]string(nil), s.NodeLabels...),
		Relationships: append([]RelationshipProjection(nil), s.Relationships...),
	}
}

// Projection is the registry's record of a materialized projection and the
// handle returned by Ensure.
type Projection struct {
	Name      string    `json:"name"`
	Signature Signature `json:"signature"`

	// Version is the logical creation marker. It increases with every
	// create the registry issues, so two handles with the same Version
	// refer to the same materialization.
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`

	NodeCount         int64 `json:"nodeCount"`
	RelationshipCount int64 `json:"relationshipCount"`

	Stale bool `json:"stale"`
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
