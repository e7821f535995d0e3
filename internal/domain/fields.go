package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldMap is a schema-less record body keyed by backend column name.
type FieldMap map[string]any

// Text reads key through the Text accessor.
func (f FieldMap) Text(key string) string {
	if f == nil {
		return ""
	}
	return Text(f[key])
}

// Has reports whether key is present, even with a nil value.
func (f FieldMap) Has(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f[key]
	return ok
}

// Clone deep-copies nested maps and slices.
func (f FieldMap) Clone() FieldMap {
	if f == nil {
		return nil
	}
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case FieldMap:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	case []map[string]any:
		s := make([]map[string]any, len(val))
		for i, inner := range val {
			s[i], _ = cloneValue(inner).(map[string]any)
		}
		return s
	default:
		return v
	}
}

// Text normalizes a field value to its scalar text. Raw strings and tagged
// option objects ({"value": "X"}) read the same.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		return mapText(val)
	case FieldMap:
		return mapText(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := Text(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []map[string]any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := mapText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return ""
	}
}

func mapText(m map[string]any) string {
	if v, ok := m["value"]; ok {
		return Text(v)
	}
	// attachment objects
	if v, ok := m["filename"]; ok {
		if s := Text(v); s != "" {
			return s
		}
	}
	if v, ok := m["url"]; ok {
		return Text(v)
	}
	if v, ok := m["name"]; ok {
		return Text(v)
	}
	return ""
}
