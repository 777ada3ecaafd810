package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/erazemk/sneakerdex/internal/model"
)

// Filter returns the items that satisfy every non-empty facet of spec, in
// their original relative order. Brand and status match case-insensitively;
// the size facet is compared against the size field of unit. An item with no
// value for a constrained facet never matches.
func Filter(items []model.Sneaker, spec FilterSpec, unit model.SizeUnit) []model.Sneaker {
	brands := stringSet(spec.Brands)
	statuses := stringSet(spec.Statuses)
	sizes := floatSet(spec.Sizes)
	conditions := floatSet(spec.Conditions)

	out := make([]model.Sneaker, 0, len(items))
	for i := range items {
		s := &items[i]
		if brands != nil && !matchString(brands, s.Brand) {
			continue
		}
		if statuses != nil && !matchString(statuses, string(s.Status)) {
			continue
		}
		if sizes != nil && !matchFloat(sizes, s.Size(unit)) {
			continue
		}
		if conditions != nil && !matchFloat(conditions, s.Condition) {
			continue
		}
		out = append(out, *s)
	}
	return out
}

func stringSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalize(v)] = struct{}{}
	}
	return set
}

func floatSet(values []float64) map[float64]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[float64]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func matchString(set map[string]struct{}, v string) bool {
	if strings.TrimSpace(v) == "" {
		return false
	}
	_, ok := set[normalize(v)]
	return ok
}

func matchFloat(set map[float64]struct{}, v *float64) bool {
	if v == nil {
		return false
	}
	_, ok := set[*v]
	return ok
}

// Sort returns a sorted copy of items. Ties keep their original relative
// order. Missing numeric values compare as zero.
func Sort(items []model.Sneaker, key SortKey, dir Direction, unit model.SizeUnit) []model.Sneaker {
	out := slices.Clone(items)
	compare := comparator(key, unit)
	if dir == Descending {
		asc := compare
		compare = func(a, b *model.Sneaker) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, func(a, b model.Sneaker) int {
		return compare(&a, &b)
	})
	return out
}

func comparator(key SortKey, unit model.SizeUnit) func(a, b *model.Sneaker) int {
	switch key {
	case SortByBrand:
		return func(a, b *model.Sneaker) int { return strings.Compare(a.Brand, b.Brand) }
	case SortBySize:
		return func(a, b *model.Sneaker) int { return cmp.Compare(deref(a.Size(unit)), deref(b.Size(unit))) }
	case SortByCondition:
		return func(a, b *model.Sneaker) int { return cmp.Compare(deref(a.Condition), deref(b.Condition)) }
	case SortByValue:
		return func(a, b *model.Sneaker) int { return cmp.Compare(deref(a.PricePaid), deref(b.PricePaid)) }
	default:
		return func(a, b *model.Sneaker) int { return strings.Compare(a.Model, b.Model) }
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
