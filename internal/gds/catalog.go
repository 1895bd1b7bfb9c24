package gds

import (
	"fmt"
	"sort"
)

// CatalogEntry is the fixed projection and result shape for one algorithm kind.
type CatalogEntry struct {
	// Kind is the algorithm kind this entry serves.
	Kind AlgorithmKind `yaml:"kind"`

	// Description is shown by the MCP tools and the projections endpoint.
	Description string `yaml:"description,omitempty"`

	// Projection is the signature the algorithm runs against.
	Projection Signature `yaml:"projection"`

	// Result configures centrality/community row filtering.
	Result *ResultConfig `yaml:"result,omitempty"`

	// DisplayProperties are tried in order to name nodes on a shortest path.
	DisplayProperties []string `yaml:"display_properties,omitempty"`

	// Defaults are the shortest-path anchors used when a caller names none.
	Defaults map[Form]RouteDefaults `yaml:"defaults,omitempty"`

	// Source is the config file the entry was loaded from.
	Source string `yaml:"-"`
}

// ResultConfig selects which streamed nodes are returned and how they are named.
type ResultConfig struct {
	// Label filters streamed nodes (e.g. "Customer").
	Label string `yaml:"label"`

	// DisplayProperty names a result node (e.g. "companyName").
	DisplayProperty string `yaml:"display_property"`
}

// RouteDefaults are the fixed anchors of a shortest-path form.
type RouteDefaults struct {
	Source         Selector `yaml:"source"`
	Target         Selector `yaml:"target"`
	WeightProperty string   `yaml:"weight_property,omitempty"`
}

// DefaultRequest returns a shortest-path request for form built from the
// configured defaults. Missing defaults leave the selectors nil.
func (e CatalogEntry) DefaultRequest(form Form) AlgorithmRequest {
	req := AlgorithmRequest{Kind: e.Kind, Form: form}
	if d, ok := e.Defaults[form]; ok {
		source, target := d.Source, d.Target
		req.Source = &source
		req.Target = &target
		req.WeightProperty = d.WeightProperty
	}
	return req
}

// Catalog maps each algorithm kind to its entry.
type Catalog map[AlgorithmKind]CatalogEntry

// Lookup returns the entry for kind.
func (c Catalog) Lookup(kind AlgorithmKind) (CatalogEntry, error) {
	entry, ok := c[kind]
	if !ok {
		return CatalogEntry{}, fmt.Errorf("no projection configured for algorithm kind %q", kind)
	}
	return entry, nil
}

// Kinds returns the configured kinds in a stable order.
func (c Catalog) Kinds() []AlgorithmKind {
	kinds := make([]AlgorithmKind, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// signatureFor resolves the projection signature a request needs: the
// catalog signature, renamed when the request overrides the name and
// weighted when the request names a weight property.
func (e CatalogEntry) signatureFor(req AlgorithmRequest) Signature {
	sig := e.Projection.clone()
	if req.ProjectionName != "" {
		sig = sig.WithName(req.ProjectionName)
	}
	if req.Kind == KindShortestPath {
		sig = sig.WithWeight(req.WeightProperty)
	}
	return sig
}

func (e CatalogEntry) validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown algorithm kind %q", e.Kind)
	}
	if err := e.Projection.Validate(); err != nil {
		return err
	}
	switch e.Kind {
	case KindCentrality, KindCommunity:
		if e.Result == nil {
			return fmt.Errorf("%s entry requires a result section", e.Kind)
		}
		if !ValidIdentifier(e.Result.Label) {
			return fmt.Errorf("%s entry has invalid result label %q", e.Kind, e.Result.Label)
		}
		if !ValidIdentifier(e.Result.DisplayProperty) {
			return fmt.Errorf("%s entry has invalid result display property %q", e.Kind, e.Result.DisplayProperty)
		}
	case KindShortestPath:
		if len(e.DisplayProperties) == 0 {
			return fmt.Errorf("%s entry requires display_properties", e.Kind)
		}
		for _, p := range e.DisplayProperties {
			if !ValidIdentifier(p) {
				return fmt.Errorf("%s entry has invalid display property %q", e.Kind, p)
			}
		}
		for form, d := range e.Defaults {
			if form != FormCost && form != FormPath {
				return fmt.Errorf("%s entry has defaults for unknown form %q", e.Kind, form)
			}
			if err := d.Source.validate("default source"); err != nil {
				return err
			}
			if err := d.Target.validate("default target"); err != nil {
				return err
			}
			if d.WeightProperty != "" && !ValidIdentifier(d.WeightProperty) {
				return fmt.Errorf("%s entry has invalid default weight property %q", e.Kind, d.WeightProperty)
			}
		}
	}
	return nil
}
