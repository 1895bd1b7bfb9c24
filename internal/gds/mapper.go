package gds

import (
	"fmt"
	"math"
	"sort"

	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ResultRecord is one mapped output row. Field names are fixed per kind.
type ResultRecord interface {
	Kind() AlgorithmKind
}

// PathCost is the cost form of a shortest-path result.
type PathCost struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	TotalCost float64 `json:"totalCost"`
}

// PathNodes is the path form of a shortest-path result, source to target inclusive.
type PathNodes struct {
	Path []string `json:"path"`
}

// CustomerScore is a centrality result.
type CustomerScore struct {
	Customer string  `json:"customer"`
	Score    float64 `json:"score"`
}

// CustomerCommunity is a community detection result.
type CustomerCommunity struct {
	Customer    string `json:"customer"`
	CommunityID int64  `json:"communityId"`
}

func (PathCost) Kind() AlgorithmKind          { return KindShortestPath }
func (PathNodes) Kind() AlgorithmKind         { return KindShortestPath }
func (CustomerScore) Kind() AlgorithmKind     { return KindCentrality }
func (CustomerCommunity) Kind() AlgorithmKind { return KindCommunity }

// Engine column names accepted for each output field, in lookup order.
var (
	fromColumns        = []string{"from", "source", "sourceName", "sourceNodeName"}
	toColumns          = []string{"to", "target", "targetName", "targetNodeName"}
	totalCostColumns   = []string{"totalCost", "cost", "total_cost"}
	pathColumns        = []string{"path", "nodeNames", "nodes"}
	customerColumns    = []string{"customer", "customerName", "companyName", "name"}
	scoreColumns       = []string{"score", "pageRank", "rank"}
	communityIDColumns = []string{"communityId", "community", "community_id"}
)

type mapOptions struct {
	form  Form
	order Order
}

// MapOption adjusts the output shape.
type MapOption func(*mapOptions)

// WithForm selects the shortest-path form. Defaults to FormCost.
func WithForm(f Form) MapOption {
	return func(o *mapOptions) { o.form = f }
}

// WithOrder selects ranked ordering. Defaults to Descending.
func WithOrder(order Order) MapOption {
	return func(o *mapOptions) { o.order = order }
}

// Map converts raw engine rows into result records for kind. It has no side
// effects; a row lacking a required field fails the whole mapping.
func Map(kind AlgorithmKind, rows []*neo4j.Record, opts ...MapOption) ([]ResultRecord, error) {
	o := mapOptions{form: FormCost, order: Descending}
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]ResultRecord, 0, len(rows))
	switch kind {
	case KindShortestPath:
		for i, row := range rows {
			rec, err := mapShortestPath(row, o.form)
			if err != nil {
				return nil, rowError(i, err)
			}
			out = append(out, rec)
		}
	case KindCentrality:
		scored := make([]CustomerScore, 0, len(rows))
		for i, row := range rows {
			rec, err := mapCustomerScore(row)
			if err != nil {
				return nil, rowError(i, err)
			}
			scored = append(scored, rec)
		}
		sort.SliceStable(scored, func(i, j int) bool {
			if o.order == Ascending {
				return scored[i].Score < scored[j].Score
			}
			return scored[i].Score > scored[j].Score
		})
		for _, rec := range scored {
			out = append(out, rec)
		}
	case KindCommunity:
		grouped := make([]CustomerCommunity, 0, len(rows))
		for i, row := range rows {
			rec, err := mapCustomerCommunity(row)
			if err != nil {
				return nil, rowError(i, err)
			}
			grouped = append(grouped, rec)
		}
		sort.SliceStable(grouped, func(i, j int) bool {
			if o.order == Ascending {
				return grouped[i].CommunityID < grouped[j].CommunityID
			}
			return grouped[i].CommunityID > grouped[j].CommunityID
		})
		for _, rec := range grouped {
			out = append(out, rec)
		}
	default:
		return nil, gdserr.Errorf(gdserr.KindInvalidRequest, "map", fmt.Sprintf("unknown algorithm kind %q", kind))
	}
	return out, nil
}

func mapShortestPath(row *neo4j.Record, form Form) (ResultRecord, error) {
	if form == FormPath {
		raw, err := field(row, "path", pathColumns)
		if err != nil {
			return nil, err
		}
		path, err := asStrings("path", raw)
		if err != nil {
			return nil, err
		}
		return PathNodes{Path: path}, nil
	}

	from, err := stringField(row, "from", fromColumns)
	if err != nil {
		return nil, err
	}
	to, err := stringField(row, "to", toColumns)
	if err != nil {
		return nil, err
	}
	cost, err := floatField(row, "totalCost", totalCostColumns)
	if err != nil {
		return nil, err
	}
	return PathCost{From: from, To: to, TotalCost: cost}, nil
}

func mapCustomerScore(row *neo4j.Record) (CustomerScore, error) {
	customer, err := stringField(row, "customer", customerColumns)
	if err != nil {
		return CustomerScore{}, err
	}
	score, err := floatField(row, "score", scoreColumns)
	if err != nil {
		return CustomerScore{}, err
	}
	return CustomerScore{Customer: customer, Score: score}, nil
}

func mapCustomerCommunity(row *neo4j.Record) (CustomerCommunity, error) {
	customer, err := stringField(row, "customer", customerColumns)
	if err != nil {
		return CustomerCommunity{}, err
	}
	raw, err := field(row, "communityId", communityIDColumns)
	if err != nil {
		return CustomerCommunity{}, err
	}
	id, err := asInt("communityId", raw)
	if err != nil {
		return CustomerCommunity{}, err
	}
	return CustomerCommunity{Customer: customer, CommunityID: id}, nil
}

// field returns the first present column among aliases.
func field(row *neo4j.Record, name string, aliases []string) (any, error) {
	if row == nil {
		return nil, fmt.Errorf("row is nil")
	}
	for _, alias := range aliases {
		if v, ok := row.Get(alias); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("missing field %q (columns: %v)", name, row.Keys)
}

// stringField renders display names. A null display property maps to "".
func stringField(row *neo4j.Record, name string, aliases []string) (string, error) {
	raw, err := field(row, name, aliases)
	if err != nil {
		return "", err
	}
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func floatField(row *neo4j.Record, name string, aliases []string) (float64, error) {
	raw, err := field(row, name, aliases)
	if err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("field %q is %T, want number", name, raw)
	}
}

func asInt(name string, raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	}
	return 0, fmt.Errorf("field %q is %T, want integer", name, raw)
}

func asStrings(name string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case nil:
				return nil, fmt.Errorf("field %q element %d is null", name, i)
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q is %T, want list", name, raw)
	}
}

func rowError(i int, err error) error {
	return gdserr.MalformedRow("map", fmt.Sprintf("row %d: %v", i, err))
}
