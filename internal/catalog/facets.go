package catalog

import (
	"sort"

	"storefront/internal/domain"
)

// Facets lists the distinct brands and types available for filtering.
type Facets struct {
	Brands []string `json:"brands"`
	Types  []string `json:"types"`
}

// CollectFacets gathers sorted distinct brand and type names.
func CollectFacets(products []domain.Product) Facets {
	brands := map[string]struct{}{}
	types := map[string]struct{}{}
	for _, p := range products {
		if p.Brand != "" {
			brands[p.Brand] = struct{}{}
		}
		if p.Type != "" {
			types[p.Type] = struct{}{}
		}
	}
	return Facets{Brands: sortedKeys(brands), Types: sortedKeys(types)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
