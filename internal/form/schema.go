package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// fieldSchema is the subset of a JSON schema needed to coerce raw input.
type fieldSchema struct {
	Properties map[string]struct {
		Type json.RawMessage `json:"type"`
	} `json:"properties"`
}

// compile loads a JSON schema and extracts the declared type of each
// top-level property.
func compile(doc string) (*gojsonschema.Schema, map[string]string, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, nil, fmt.Errorf("loading schema: %w", err)
	}

	var fs fieldSchema
	if err := json.Unmarshal([]byte(doc), &fs); err != nil {
		return nil, nil, fmt.Errorf("reading schema properties: %w", err)
	}

	types := make(map[string]string, len(fs.Properties))
	for name, prop := range fs.Properties {
		types[name] = declaredType(prop.Type)
	}
	return schema, types, nil
}

// declaredType returns the first non-null type of a "type" keyword, which
// may be a string or an array of strings.
func declaredType(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t != "null" {
				return t
			}
		}
	}
	return ""
}

// coerce converts text input to the declared property types. Blank input for
// a non-string property is dropped so that "required" reports it. Values
// that fail to parse are kept as-is for the schema to reject.
func coerce(values map[string]any, types map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for name, v := range values {
		if v == nil {
			continue
		}
		typ := types[name]
		s, isString := v.(string)
		if isString && typ != "string" && typ != "" && strings.TrimSpace(s) == "" {
			continue
		}

		switch typ {
		case "number":
			out[name] = toNumber(v)
		case "integer":
			out[name] = toInteger(v)
		case "boolean":
			if isString {
				if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
					out[name] = b
					continue
				}
			}
			out[name] = v
		default:
			out[name] = v
		}
	}
	return out
}

func toNumber(v any) any {
	switch n := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

func toInteger(v any) any {
	switch n := v.(type) {
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i
		}
	case int:
		return int64(n)
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return v
}

// fieldErrors validates data and returns the first message per field.
func fieldErrors(schema *gojsonschema.Schema, data map[string]any) (map[string]string, error) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validating form: %w", err)
	}

	errs := make(map[string]string)
	for _, re := range result.Errors() {
		field := re.Field()
		msg := re.Description()
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
				msg = p + " is required"
			}
		}
		field = strings.TrimPrefix(field, "(root).")
		if _, seen := errs[field]; !seen {
			errs[field] = msg
		}
	}
	return errs, nil
}
