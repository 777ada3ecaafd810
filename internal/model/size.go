package model

import (
	"fmt"
	"math"
	"strings"
)

// SizeUnit selects one of the two size encodings stored on a sneaker.
type SizeUnit string

// Size units.
const (
	SizeUnitEU SizeUnit = "EU"
	SizeUnitUS SizeUnit = "US"
)

// euOffset is the distance between EU and US men's sizing.
const euOffset = 33

// ParseSizeUnit parses a unit case-insensitively.
func ParseSizeUnit(s string) (SizeUnit, error) {
	switch SizeUnit(strings.ToUpper(strings.TrimSpace(s))) {
	case SizeUnitEU:
		return SizeUnitEU, nil
	case SizeUnitUS:
		return SizeUnitUS, nil
	}
	return "", fmt.Errorf("unknown size unit %q", s)
}

// Valid reports whether u is a known unit.
func (u SizeUnit) Valid() bool {
	return u == SizeUnitEU || u == SizeUnitUS
}

// Size holds both encodings of one canonical measurement.
type Size struct {
	EU float64
	US float64
}

// NewSize derives both encodings from a measurement taken in unit.
func NewSize(value float64, unit SizeUnit) (Size, error) {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return Size{}, fmt.Errorf("invalid size %v", value)
	}
	switch unit {
	case SizeUnitEU:
		return Size{EU: roundHalf(value), US: ConvertSize(value, SizeUnitEU, SizeUnitUS)}, nil
	case SizeUnitUS:
		return Size{EU: ConvertSize(value, SizeUnitUS, SizeUnitEU), US: roundHalf(value)}, nil
	}
	return Size{}, fmt.Errorf("unknown size unit %q", unit)
}

// ConvertSize converts a size between units, rounded to the nearest half size.
func ConvertSize(value float64, from, to SizeUnit) float64 {
	switch {
	case from == to:
		return roundHalf(value)
	case from == SizeUnitEU && to == SizeUnitUS:
		return roundHalf(value - euOffset)
	case from == SizeUnitUS && to == SizeUnitEU:
		return roundHalf(value + euOffset)
	}
	return value
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}
