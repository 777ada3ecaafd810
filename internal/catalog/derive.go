package catalog

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/erazemk/sneakerdex/internal/model"
)

// DerivationError reports why a view could not be derived.
type DerivationError struct {
	Op  string
	Err error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("deriving view: %s: %v", e.Op, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// Derive filters then sorts items. Invalid inputs yield a *DerivationError
// instead of a partially derived list.
func Derive(items []model.Sneaker, filter FilterSpec, sort SortSpec, unit model.SizeUnit) ([]model.Sneaker, error) {
	if !unit.Valid() {
		return nil, &DerivationError{Op: "unit", Err: fmt.Errorf("unknown size unit %q", unit)}
	}
	if err := filter.Validate(); err != nil {
		return nil, &DerivationError{Op: "filter", Err: err}
	}
	if err := sort.Validate(); err != nil {
		return nil, &DerivationError{Op: "sort", Err: err}
	}
	return Sort(Filter(items, filter, unit), sort.Key, sort.Dir, unit), nil
}

// Result is the outcome of a View refresh.
type Result struct {
	Items []model.Sneaker
	// Degraded is set when derivation failed and Items is a fallback.
	Degraded bool
	Err      error
}

// View keeps the last successfully derived list so a failed derivation can
// fall back to it.
type View struct {
	logger   *slog.Logger
	lastGood []model.Sneaker
	hasGood  bool
}

// NewView creates a view. A nil logger uses slog.Default().
func NewView(logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{logger: logger}
}

// Refresh derives a new list from source. On failure it logs and returns the
// last good list, or a copy of source if nothing was derived yet.
func (v *View) Refresh(source []model.Sneaker, filter FilterSpec, sort SortSpec, unit model.SizeUnit) Result {
	items, err := Derive(source, filter, sort, unit)
	if err == nil {
		v.lastGood = items
		v.hasGood = true
		return Result{Items: items}
	}

	v.logger.Warn("view derivation failed, using fallback", "error", err, "has_last_good", v.hasGood)
	if v.hasGood {
		return Result{Items: v.lastGood, Degraded: true, Err: err}
	}
	return Result{Items: slices.Clone(source), Degraded: true, Err: err}
}

// Reset forgets the last good list, e.g. after the source collection changed.
func (v *View) Reset() {
	v.lastGood = nil
	v.hasGood = false
}
