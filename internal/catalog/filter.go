package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	AllCategories   = "All"
	DefaultMaxPrice = 5000
)

// Query is the catalog view state. A non-empty SharedID overrides every other
// field.
type Query struct {
	Search   string  `json:"search"`
	Category string  `json:"category"`
	MaxPrice float64 `json:"maxPrice"`
	SharedID string  `json:"sharedId,omitempty"`
}

func DefaultQuery() Query {
	return Query{Category: AllCategories, MaxPrice: DefaultMaxPrice}
}

// Filter projects vendors through q, keeping catalog order.
func Filter(vendors []Vendor, q Query) []Vendor {
	out := make([]Vendor, 0, len(vendors))
	if q.SharedID != "" {
		for _, v := range vendors {
			if v.ID == q.SharedID {
				out = append(out, v)
				break
			}
		}
		return out
	}

	needle := strings.ToLower(q.Search)
	for _, v := range vendors {
		if !strings.Contains(strings.ToLower(v.Name), needle) &&
			!strings.Contains(strings.ToLower(v.Description), needle) {
			continue
		}
		if q.Category != AllCategories && v.Category != q.Category {
			continue
		}
		if v.PriceStart > q.MaxPrice {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Categories is the fixed set followed by every category that only occurs in
// the catalog, in first-seen order.
func Categories(vendors []Vendor) []string {
	seen := make(map[string]struct{}, len(BaseCategories)+len(vendors))
	out := make([]string, 0, len(BaseCategories))
	for _, c := range BaseCategories {
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, v := range vendors {
		if _, ok := seen[v.Category]; ok {
			continue
		}
		seen[v.Category] = struct{}{}
		out = append(out, v.Category)
	}
	return out
}

// ResolveCategory maps typed input onto a known category. Exact matches are
// case-insensitive; otherwise the closest category within a third of its
// length is returned with exact=false.
func ResolveCategory(input string, categories []string) (category string, exact bool, ok bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return "", false, false
	}
	if in == strings.ToLower(AllCategories) || in == "alle" {
		return AllCategories, true, true
	}
	best, bestDist := "", -1
	for _, c := range categories {
		lc := strings.ToLower(c)
		if lc == in {
			return c, true, true
		}
		d := levenshtein.ComputeDistance(in, lc)
		if strings.HasPrefix(lc, in) {
			d = 0
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist >= 0 && bestDist <= len([]rune(best))/3 {
		return best, false, true
	}
	return "", false, false
}
