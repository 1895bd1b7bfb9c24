package gds

import (
	"fmt"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
)

// AlgorithmKind names an orchestrated algorithm family.
type AlgorithmKind string

const (
	KindShortestPath AlgorithmKind = "shortest-path"
	KindCentrality   AlgorithmKind = "centrality"
	KindCommunity    AlgorithmKind = "community"
)

// Valid reports whether k is a known algorithm kind.
func (k AlgorithmKind) Valid() bool {
	switch k {
	case KindShortestPath, KindCentrality, KindCommunity:
		return true
	}
	return false
}

// Form selects the shortest-path output shape.
type Form string

const (
	// FormCost yields {from, to, totalCost}.
	FormCost Form = "cost"
	// FormPath yields {path: [...]}.
	FormPath Form = "path"
)

// Order is the result ordering for ranked outputs.
type Order string

const (
	Descending Order = "desc"
	Ascending  Order = "asc"
)

func (o Order) cypher() string {
	if o == Ascending {
		return "ASC"
	}
	return "DESC"
}

// Selector identifies a single anchor node by a property match,
// e.g. (:Supplier {companyName: "Tokyo Traders"}).
type Selector struct {
	Label    string `json:"label" yaml:"label"`
	Property string `json:"property" yaml:"property"`
	Value    any    `json:"value" yaml:"value"`

	// DisplayProperty is the property rendered as the node's name in results.
	// Defaults to Property.
	DisplayProperty string `json:"displayProperty,omitempty" yaml:"display_property,omitempty"`
}

func (s *Selector) display() string {
	if s.DisplayProperty != "" {
		return s.DisplayProperty
	}
	return s.Property
}

func (s *Selector) validate(role string) error {
	if s == nil {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", role+" selector is required")
	}
	if !ValidIdentifier(s.Label) {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("%s selector label %q is not a valid identifier", role, s.Label))
	}
	if !ValidIdentifier(s.Property) {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("%s selector property %q is not a valid identifier", role, s.Property))
	}
	if s.DisplayProperty != "" && !ValidIdentifier(s.DisplayProperty) {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("%s selector display property %q is not a valid identifier", role, s.DisplayProperty))
	}
	if s.Value == nil || s.Value == "" {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", role+" selector value is required")
	}
	return nil
}

// AlgorithmRequest carries the parameters of one orchestrated call.
type AlgorithmRequest struct {
	Kind AlgorithmKind

	// ProjectionName overrides the catalog projection name for this kind.
	ProjectionName string

	// Shortest path.
	Source         *Selector
	Target         *Selector
	WeightProperty string
	Form           Form

	// Centrality and community.
	Limit int
	Order Order

	// Centrality tuning; zero values leave the engine defaults.
	MaxIterations int
	DampingFactor float64
}

// Validate checks the request is runnable, tagging failures as InvalidRequest.
func (r AlgorithmRequest) Validate() error {
	if !r.Kind.Valid() {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("unknown algorithm kind %q", r.Kind))
	}
	if r.Limit < 0 {
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", "limit must not be negative")
	}
	switch r.Order {
	case "", Ascending, Descending:
	default:
		return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("unknown order %q", r.Order))
	}

	switch r.Kind {
	case KindShortestPath:
		if err := r.Source.validate("source"); err != nil {
			return err
		}
		if err := r.Target.validate("target"); err != nil {
			return err
		}
		if r.WeightProperty != "" && !ValidIdentifier(r.WeightProperty) {
			return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("weight property %q is not a valid identifier", r.WeightProperty))
		}
		switch r.Form {
		case "", FormCost, FormPath:
		default:
			return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", fmt.Sprintf("unknown shortest-path form %q", r.Form))
		}
	case KindCentrality:
		if r.MaxIterations < 0 {
			return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", "maxIterations must not be negative")
		}
		if r.DampingFactor < 0 || r.DampingFactor >= 1 {
			return gdserr.Errorf(gdserr.KindInvalidRequest, "validate", "dampingFactor must be in [0, 1)")
		}
	}
	return nil
}

func (r AlgorithmRequest) order() Order {
	if r.Order == "" {
		return Descending
	}
	return r.Order
}

func (r AlgorithmRequest) form() Form {
	if r.Form == "" {
		return FormCost
	}
	return r.Form
}
