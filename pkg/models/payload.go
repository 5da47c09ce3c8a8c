package models

import (
	"strconv"
	"strings"
)

// EventPayload is the structured event data a trigger carries. Nested objects
// are addressed with dotted field paths ("customer.email").
type EventPayload map[string]any

// Lookup resolves a dotted field path against the payload. The second return
// is false when any segment is absent or a non-object is traversed.
func (p EventPayload) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = map[string]any(p)

	for _, segment := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// LookupString resolves a dotted field path to a string value. Non-string
// scalars are formatted; absent paths and nested objects return false.
func (p EventPayload) LookupString(path string) (string, bool) {
	value, ok := p.Lookup(path)
	if !ok {
		return "", false
	}

	formatted, ok := formatScalar(value)

	return formatted, ok
}

// Flatten converts the payload into the flat variable map handed to the
// template renderer: scalar leaves keyed by their dotted path. Arrays and
// nulls are skipped; templates address named fields only.
func (p EventPayload) Flatten() map[string]string {
	flat := make(map[string]string)
	flattenInto(flat, "", map[string]any(p))

	return flat
}

func flattenInto(flat map[string]string, prefix string, object map[string]any) {
	for key, value := range object {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			flattenInto(flat, path, nested)

			continue
		}

		if formatted, ok := formatScalar(value); ok {
			flat[path] = formatted
		}
	}
}

func formatScalar(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
