package model

import (
	"fmt"
	"strings"
	"time"
)

// Sneaker is a single pair in a collector's catalogue.
type Sneaker struct {
	ID             string    `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	Brand          string    `json:"brand"`
	Model          string    `json:"model"`
	Description    string    `json:"description,omitempty"`
	StyleCode      string    `json:"style_code,omitempty"`
	SizeEU         *float64  `json:"size_eu,omitempty"`
	SizeUS         *float64  `json:"size_us,omitempty"`
	Condition      *float64  `json:"condition,omitempty"`
	Status         Status    `json:"status"`
	PricePaid      *float64  `json:"price_paid,omitempty"`
	EstimatedValue *float64  `json:"estimated_value,omitempty"`
	Images         []string  `json:"images"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Size returns the size in the given unit, or nil if the pair has no size.
func (s *Sneaker) Size(unit SizeUnit) *float64 {
	switch unit {
	case SizeUnitUS:
		return s.SizeUS
	case SizeUnitEU:
		return s.SizeEU
	}
	return nil
}

// SetSize stores both size encodings derived from one measurement.
func (s *Sneaker) SetSize(size Size) {
	eu, us := size.EU, size.US
	s.SizeEU = &eu
	s.SizeUS = &us
}

// Status is the lifecycle state of a pair.
type Status string

// Sneaker statuses.
const (
	StatusStocking Status = "stocking"
	StatusRocking  Status = "rocking"
	StatusSelling  Status = "selling"
	StatusSold     Status = "sold"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusStocking, StatusRocking, StatusSelling, StatusSold}

// ParseStatus parses a status case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if v == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Condition bounds. Conditions move in half-point steps.
const (
	MinCondition = 0
	MaxCondition = 10
)

// ValidCondition reports whether c is on the 0-10 half-point scale.
func ValidCondition(c float64) bool {
	if c < MinCondition || c > MaxCondition {
		return false
	}
	return c*2 == float64(int(c*2))
}
