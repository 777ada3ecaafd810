package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/erazemk/sneakerdex/internal/model"
)

// Facets holds the distinct values present in a collection, used to offer
// filter choices.
type Facets struct {
	Brands     []string  `json:"brands"`
	Sizes      []float64 `json:"sizes"`
	Conditions []float64 `json:"conditions"`
	Statuses   []string  `json:"statuses"`
}

// UniqueValues indexes the distinct brands, sizes (in unit), conditions and
// statuses of items. Brands and statuses sort A to Z, sizes ascending and
// conditions descending. Missing values are skipped. Brands that differ only
// in case or surrounding space are one facet, spelled as first seen, since
// filtering treats them as the same brand.
func UniqueValues(items []model.Sneaker, unit model.SizeUnit) Facets {
	brands := make(map[string]string)
	statuses := make(map[string]struct{})
	sizes := make(map[float64]struct{})
	conditions := make(map[float64]struct{})

	for i := range items {
		s := &items[i]
		if key := normalize(s.Brand); key != "" {
			if _, seen := brands[key]; !seen {
				brands[key] = strings.TrimSpace(s.Brand)
			}
		}
		if s.Status != "" {
			statuses[string(s.Status)] = struct{}{}
		}
		if size := s.Size(unit); size != nil {
			sizes[*size] = struct{}{}
		}
		if s.Condition != nil {
			conditions[*s.Condition] = struct{}{}
		}
	}

	f := Facets{
		Brands:     make([]string, 0, len(brands)),
		Sizes:      keys(sizes),
		Conditions: keys(conditions),
		Statuses:   keys(statuses),
	}
	for _, spelling := range brands {
		f.Brands = append(f.Brands, spelling)
	}
	slices.SortFunc(f.Brands, func(a, b string) int { return cmp.Compare(normalize(a), normalize(b)) })
	slices.Sort(f.Sizes)
	slices.SortFunc(f.Conditions, func(a, b float64) int { return cmp.Compare(b, a) })
	slices.Sort(f.Statuses)
	return f
}

func keys[K comparable](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Summary aggregates a collection's money fields.
type Summary struct {
	Count          int     `json:"count"`
	TotalPaid      float64 `json:"total_paid"`
	TotalValue     float64 `json:"total_value"`
	ValuedCount    int     `json:"valued_count"`
	UnrealizedGain float64 `json:"unrealized_gain"`
}

// Summarize totals what was paid and what the collection is estimated to be
// worth. Gain only counts pairs that have both a price and an estimate.
func Summarize(items []model.Sneaker) Summary {
	var sum Summary
	sum.Count = len(items)
	for i := range items {
		s := &items[i]
		if s.PricePaid != nil {
			sum.TotalPaid += *s.PricePaid
		}
		if s.EstimatedValue != nil {
			sum.TotalValue += *s.EstimatedValue
			sum.ValuedCount++
		}
		if s.PricePaid != nil && s.EstimatedValue != nil {
			sum.UnrealizedGain += *s.EstimatedValue - *s.PricePaid
		}
	}
	return sum
}
