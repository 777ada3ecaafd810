package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erazemk/sneakerdex/internal/form"
	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/store"
)

// sneakerSchema validates create and edit submissions. Size is entered once,
// in size_unit, and the other unit is derived on save.
const sneakerSchema = `{
	"type": "object",
	"required": ["brand", "model", "size"],
	"properties": {
		"brand":           {"type": "string", "minLength": 1, "maxLength": 100},
		"model":           {"type": "string", "minLength": 1, "maxLength": 200},
		"description":     {"type": "string", "maxLength": 2000},
		"style_code":      {"type": "string", "maxLength": 40},
		"size":            {"type": "number", "minimum": 1, "maximum": 60, "multipleOf": 0.5},
		"size_unit":       {"type": "string", "enum": ["EU", "US"]},
		"condition":       {"type": "number", "minimum": 0, "maximum": 10, "multipleOf": 0.5},
		"status":          {"type": "string", "enum": ["stocking", "rocking", "selling", "sold"]},
		"price_paid":      {"type": "number", "minimum": 0},
		"estimated_value": {"type": "number", "minimum": 0},
		"images":          {"type": "array", "items": {"type": "string"}}
	}
}`

// styleCodeTakenMessage is shown when the owner already has the style code.
const styleCodeTakenMessage = "style code already in your collection"

// newSneakerForm creates a form controller for one owner. excludeID is the
// sneaker being edited, which must not conflict with itself.
func newSneakerForm(db *sql.DB, mode form.Mode, initial map[string]any, ownerID int64, excludeID string) (*form.Controller, error) {
	return form.New(form.Options{
		Schema:  sneakerSchema,
		Mode:    mode,
		Initial: initial,
		AsyncValidators: map[string]form.AsyncValidator{
			"style_code": styleCodeValidator(db, ownerID, excludeID),
		},
	})
}

func styleCodeValidator(db *sql.DB, ownerID int64, excludeID string) form.AsyncValidator {
	return func(ctx context.Context, value string) (string, error) {
		taken, err := store.StyleCodeTaken(ctx, db, ownerID, strings.TrimSpace(value), excludeID)
		if err != nil {
			return "", err
		}
		if taken {
			return styleCodeTakenMessage, nil
		}
		return "", nil
	}
}

// normalizeValues canonicalises enum inputs so the schema can match them
// exactly.
func normalizeValues(values map[string]any) {
	if s, ok := values["size_unit"].(string); ok {
		values["size_unit"] = strings.ToUpper(strings.TrimSpace(s))
	}
	if s, ok := values["status"].(string); ok {
		values["status"] = strings.ToLower(strings.TrimSpace(s))
	}
}

// sneakerValues renders a stored sneaker as form input, with the size in
// unit.
func sneakerValues(s *model.Sneaker, unit model.SizeUnit) map[string]any {
	values := map[string]any{
		"brand":       s.Brand,
		"model":       s.Model,
		"description": s.Description,
		"style_code":  s.StyleCode,
		"size_unit":   string(unit),
		"status":      string(s.Status),
	}
	setFloat := func(key string, v *float64) {
		if v != nil {
			values[key] = *v
		}
	}
	setFloat("size", s.Size(unit))
	setFloat("condition", s.Condition)
	setFloat("price_paid", s.PricePaid)
	setFloat("estimated_value", s.EstimatedValue)

	images := make([]any, len(s.Images))
	for i, img := range s.Images {
		images[i] = img
	}
	values["images"] = images
	return values
}

// editUnit picks the unit an edit form renders the stored size in: the one
// named in the body if it is valid, otherwise preferred. A body that only
// changes the unit then sees the stored measurement converted, not
// re-labelled.
func editUnit(values map[string]any, preferred model.SizeUnit) model.SizeUnit {
	raw, _ := values["size_unit"].(string)
	if unit, err := model.ParseSizeUnit(raw); err == nil {
		return unit
	}
	return preferred
}

// applyValues copies validated form data onto s. The size is taken in the
// submitted unit, or in preferred when none was given.
func applyValues(s *model.Sneaker, data map[string]any, preferred model.SizeUnit) error {
	s.Brand = strings.TrimSpace(stringValue(data, "brand"))
	s.Model = strings.TrimSpace(stringValue(data, "model"))
	s.Description = strings.TrimSpace(stringValue(data, "description"))
	s.StyleCode = strings.TrimSpace(stringValue(data, "style_code"))

	unit := preferred
	if raw := stringValue(data, "size_unit"); raw != "" {
		u, err := model.ParseSizeUnit(raw)
		if err != nil {
			return err
		}
		unit = u
	}
	sizeValue := floatValue(data, "size")
	if sizeValue == nil {
		return fmt.Errorf("size is required")
	}
	size, err := model.NewSize(*sizeValue, unit)
	if err != nil {
		return err
	}
	s.SetSize(size)

	s.Condition = floatValue(data, "condition")
	s.PricePaid = floatValue(data, "price_paid")
	s.EstimatedValue = floatValue(data, "estimated_value")

	s.Status = model.StatusStocking
	if raw := stringValue(data, "status"); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return err
		}
		s.Status = st
	}

	s.Images = []string{}
	if list, ok := data["images"].([]any); ok {
		for _, v := range list {
			if img, ok := v.(string); ok && strings.TrimSpace(img) != "" {
				s.Images = append(s.Images, img)
			}
		}
	}
	return nil
}

func stringValue(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func floatValue(data map[string]any, key string) *float64 {
	var f float64
	switch v := data[key].(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}
