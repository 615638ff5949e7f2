// Package catalog composes sort, search and facet filters over products.
package catalog

import (
	"sort"
	"strings"

	"storefront/internal/domain"
)

// Sort is a product ordering key.
type Sort string

const (
	SortName      Sort = "name"
	SortPrice     Sort = "price"
	SortPriceDesc Sort = "priceDesc"
)

// ParseSort maps a client key to a Sort; unknown keys fall back to SortName.
func ParseSort(s string) Sort {
	switch Sort(strings.TrimSpace(s)) {
	case SortPrice:
		return SortPrice
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortName
	}
}

// Query selects and orders products before paging. Brands and Types hold
// lower-cased names; an empty set means no restriction on that dimension.
type Query struct {
	OrderBy    Sort
	SearchTerm string
	Brands     []string
	Types      []string
}

// NewQuery builds a Query from raw request values. brands and types are
// comma-separated lists.
func NewQuery(orderBy, searchTerm, brands, types string) Query {
	return Query{
		OrderBy:    ParseSort(orderBy),
		SearchTerm: strings.ToLower(strings.TrimSpace(searchTerm)),
		Brands:     ParseList(brands),
		Types:      ParseList(types),
	}
}

// ParseList splits a comma-separated facet list, lower-casing and dropping
// blanks.
func ParseList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if v := strings.ToLower(strings.TrimSpace(part)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Normalized returns q with lower-cased search and facets and a known sort.
func (q Query) Normalized() Query {
	n := Query{
		OrderBy:    ParseSort(string(q.OrderBy)),
		SearchTerm: strings.ToLower(strings.TrimSpace(q.SearchTerm)),
	}
	for _, b := range q.Brands {
		n.Brands = append(n.Brands, ParseList(b)...)
	}
	for _, t := range q.Types {
		n.Types = append(n.Types, ParseList(t)...)
	}
	return n
}

// Match reports whether p passes the search and facet filters.
func (q Query) Match(p domain.Product) bool {
	if q.SearchTerm != "" && !strings.Contains(strings.ToLower(p.Name), q.SearchTerm) {
		return false
	}
	if len(q.Brands) > 0 && !contains(q.Brands, strings.ToLower(p.Brand)) {
		return false
	}
	if len(q.Types) > 0 && !contains(q.Types, strings.ToLower(p.Type)) {
		return false
	}
	return true
}

// Less orders a before b under q.OrderBy, breaking ties on ID.
func (q Query) Less(a, b domain.Product) bool {
	switch q.OrderBy {
	case SortPrice:
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case SortPriceDesc:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	default:
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	}
	return a.ID < b.ID
}

// Apply filters and sorts products into a new slice.
func (q Query) Apply(products []domain.Product) []domain.Product {
	q = q.Normalized()
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q.Match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
