package catalog

import (
	"reflect"
	"slices"
	"testing"

	"github.com/erazemk/sneakerdex/internal/model"
)

func TestUniqueValuesEmpty(t *testing.T) {
	got := UniqueValues(nil, model.SizeUnitEU)
	want := Facets{Brands: []string{}, Sizes: []float64{}, Conditions: []float64{}, Statuses: []string{}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want four empty lists", got)
	}
}

func TestUniqueValuesOrdering(t *testing.T) {
	items := []model.Sneaker{
		pair("a", "nike", 43, 7.5),
		pair("b", "adidas", 42, 9),
		pair("c", "nike", 42, 7.5),
		{Model: "no data"},
	}
	items[1].Status = model.StatusSold

	got := UniqueValues(items, model.SizeUnitUS)

	if !slices.Equal(got.Brands, []string{"adidas", "nike"}) {
		t.Errorf("brands = %v", got.Brands)
	}
	// 9 must come before 10: numeric, not lexical.
	if !slices.Equal(got.Sizes, []float64{9, 10}) {
		t.Errorf("sizes = %v", got.Sizes)
	}
	if !slices.Equal(got.Conditions, []float64{9, 7.5}) {
		t.Errorf("conditions = %v", got.Conditions)
	}
	if !slices.Equal(got.Statuses, []string{"sold", "stocking"}) {
		t.Errorf("statuses = %v", got.Statuses)
	}
}

func TestUniqueValuesFoldsBrandCase(t *testing.T) {
	items := []model.Sneaker{
		pair("a", "Nike", 42, 8),
		pair("b", "adidas", 42, 8),
		pair("c", "nike ", 43, 8),
		pair("d", "NIKE", 44, 8),
	}
	got := UniqueValues(items, model.SizeUnitEU)
	if !slices.Equal(got.Brands, []string{"adidas", "Nike"}) {
		t.Fatalf("brands = %v", got.Brands)
	}

	// Every facet entry selects the same pairs as its other spellings.
	matched := Filter(items, FilterSpec{}.WithBrands(got.Brands[1]), model.SizeUnitEU)
	if len(matched) != 3 {
		t.Errorf("expected 3 pairs for %q, got %d", got.Brands[1], len(matched))
	}
}

func TestUniqueValuesStrictOrder(t *testing.T) {
	var items []model.Sneaker
	for _, size := range []float64{44, 38, 41.5, 38, 40} {
		items = append(items, pair("x", "b", size, size/5))
	}
	got := UniqueValues(items, model.SizeUnitEU)
	for i := 1; i < len(got.Sizes); i++ {
		if got.Sizes[i-1] >= got.Sizes[i] {
			t.Errorf("sizes not strictly ascending: %v", got.Sizes)
		}
	}
	for i := 1; i < len(got.Conditions); i++ {
		if got.Conditions[i-1] <= got.Conditions[i] {
			t.Errorf("conditions not strictly descending: %v", got.Conditions)
		}
	}
}

func TestSummarize(t *testing.T) {
	items := sampleItems()
	items[0].PricePaid = ptr(100)
	items[0].EstimatedValue = ptr(150)
	items[1].PricePaid = ptr(80)
	items[2].EstimatedValue = ptr(40)

	got := Summarize(items)
	want := Summary{Count: 3, TotalPaid: 180, TotalValue: 190, ValuedCount: 2, UnrealizedGain: 50}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
