// Package catalog derives filtered, sorted and faceted views of a sneaker
// collection. Every function here is pure: inputs are never mutated and the
// same inputs always produce the same output.
package catalog

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/erazemk/sneakerdex/internal/model"
)

// FilterSpec constrains a collection facet by facet. An empty facet places no
// constraint. Facets are ANDed together; the values inside a facet are ORed.
type FilterSpec struct {
	Brands     []string  `json:"brands,omitempty" schema:"brand"`
	Sizes      []float64 `json:"sizes,omitempty" schema:"size"`
	Conditions []float64 `json:"conditions,omitempty" schema:"condition"`
	Statuses   []string  `json:"statuses,omitempty" schema:"status"`
}

// Empty reports whether no facet is constrained.
func (f FilterSpec) Empty() bool {
	return len(f.Brands) == 0 && len(f.Sizes) == 0 && len(f.Conditions) == 0 && len(f.Statuses) == 0
}

// Validate checks every facet value.
func (f FilterSpec) Validate() error {
	for _, b := range f.Brands {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("empty brand in filter")
		}
	}
	for _, s := range f.Sizes {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("invalid size %v in filter", s)
		}
	}
	for _, c := range f.Conditions {
		if !model.ValidCondition(c) {
			return fmt.Errorf("invalid condition %v in filter", c)
		}
	}
	for _, s := range f.Statuses {
		if _, err := model.ParseStatus(s); err != nil {
			return fmt.Errorf("filter: %w", err)
		}
	}
	return nil
}

// WithBrands returns a copy of f with the brand facet replaced.
func (f FilterSpec) WithBrands(brands ...string) FilterSpec {
	f.Brands = slices.Clone(brands)
	return f
}

// WithSizes returns a copy of f with the size facet replaced.
func (f FilterSpec) WithSizes(sizes ...float64) FilterSpec {
	f.Sizes = slices.Clone(sizes)
	return f
}

// WithConditions returns a copy of f with the condition facet replaced.
func (f FilterSpec) WithConditions(conditions ...float64) FilterSpec {
	f.Conditions = slices.Clone(conditions)
	return f
}

// WithStatuses returns a copy of f with the status facet replaced.
func (f FilterSpec) WithStatuses(statuses ...string) FilterSpec {
	f.Statuses = slices.Clone(statuses)
	return f
}

// Clear returns a spec with no constraints.
func (f FilterSpec) Clear() FilterSpec {
	return FilterSpec{}
}

// Hash returns a digest of the canonical form of f: facet values are
// normalised, deduplicated and sorted, so two specs that select the same
// items hash equally.
func (f FilterSpec) Hash() uint64 {
	d := xxhash.New()
	writeFacet := func(name string, values []string) {
		d.WriteString(name)
		d.WriteString("=")
		d.WriteString(strings.Join(values, ","))
		d.WriteString(";")
	}
	writeFacet("brand", canonicalStrings(f.Brands))
	writeFacet("size", canonicalFloats(f.Sizes))
	writeFacet("condition", canonicalFloats(f.Conditions))
	writeFacet("status", canonicalStrings(f.Statuses))
	return d.Sum64()
}

func canonicalStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, normalize(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func canonicalFloats(values []float64) []string {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	out := make([]string, len(sorted))
	for i, v := range sorted {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SortKey names the field a collection is ordered by.
type SortKey string

// Sort keys.
const (
	SortByName      SortKey = "name"
	SortByBrand     SortKey = "brand"
	SortBySize      SortKey = "size"
	SortByCondition SortKey = "condition"
	SortByValue     SortKey = "value"
)

// Direction is the sort direction.
type Direction string

// Directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec pairs a sort key with a direction.
type SortSpec struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"dir"`
}

// DefaultSort orders by model name, A to Z.
var DefaultSort = SortSpec{Key: SortByName, Dir: Ascending}

// ParseSortSpec parses a key and direction. Empty values take the defaults.
func ParseSortSpec(key, dir string) (SortSpec, error) {
	spec := DefaultSort
	if key != "" {
		spec.Key = SortKey(strings.ToLower(key))
	}
	if dir != "" {
		spec.Dir = Direction(strings.ToLower(dir))
	}
	return spec, spec.Validate()
}

// Validate checks the key and direction against the closed sets.
func (s SortSpec) Validate() error {
	switch s.Key {
	case SortByName, SortByBrand, SortBySize, SortByCondition, SortByValue:
	default:
		return fmt.Errorf("unknown sort key %q", s.Key)
	}
	if s.Dir != Ascending && s.Dir != Descending {
		return fmt.Errorf("unknown sort direction %q", s.Dir)
	}
	return nil
}
