package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Redacted replaces the value of every sensitive field.
const Redacted = "[REDACTED]"

var sensitiveFragments = []string{
	"password",
	"token",
	"secret",
	"key",
	"credit_card",
	"cvv",
	"ssn",
}

// IsSensitive reports whether a field name contains a sensitive fragment,
// case-insensitively.
func IsSensitive(field string) bool {
	lower := strings.ToLower(field)
	for _, frag := range sensitiveFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Sanitize returns a copy of metadata with sensitive fields redacted. Nested maps
// are sanitized at every depth; slices and scalars pass through; any other value is
// rendered with fmt.Sprint. The input is never modified and Sanitize is idempotent.
func Sanitize(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if IsSensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch tv := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case map[string]any:
		return Sanitize(tv)
	case []any:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Sprint(v)
		}
		nested := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			nested[iter.Key().String()] = iter.Value().Interface()
		}
		return Sanitize(nested)
	case reflect.Slice, reflect.Array:
		return v
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}

	return fmt.Sprint(v)
}
