package jsonx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Unwrap repeatedly replaces an object that has exactly one key whose value
// is itself an object with that inner object.
func Unwrap(m map[string]any) map[string]any {
	for len(m) == 1 {
		var inner map[string]any
		for _, v := range m {
			inner, _ = v.(map[string]any)
		}
		if inner == nil {
			return m
		}
		m = inner
	}
	return m
}

// WrapperKeys are nested object names whose scalar children belong at the
// top level.
var WrapperKeys = map[string]bool{
	"smartphone":     true,
	"phone":          true,
	"mobile":         true,
	"laptop":         true,
	"tablet":         true,
	"headphones":     true,
	"smartwatch":     true,
	"tv":             true,
	"toothpaste":     true,
	"shampoo":        true,
	"product":        true,
	"specs":          true,
	"specifications": true,
}

var placeholders = map[string]bool{
	"":               true,
	"unknown":        true,
	"n/a":            true,
	"na":             true,
	"not applicable": true,
	"none":           true,
	"null":           true,
}

// IsPlaceholder reports whether s carries no information.
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// FlatResult is the output of Flatten.
type FlatResult struct {
	Values  map[string]any
	Dropped []string // keys of nested values that could not be flattened
}

// Flatten keeps only scalar values. Strings are trimmed and placeholders
// dropped, booleans become "Yes"/"No", numbers stay json.Number. Objects
// under a WrapperKeys name have their scalar children lifted without
// overwriting top-level keys; arrays of scalars are joined with ", ". Any
// other nested value is reported in Dropped.
func Flatten(m map[string]any) FlatResult {
	res := FlatResult{Values: make(map[string]any, len(m))}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var wrappers []string
	for _, k := range keys {
		v := m[k]
		if _, isObj := v.(map[string]any); isObj {
			if WrapperKeys[strings.ToLower(k)] {
				wrappers = append(wrappers, k)
			} else {
				res.Dropped = append(res.Dropped, k)
			}
			continue
		}
		if s, ok := scalar(v); ok {
			res.Values[k] = s
		} else if v != nil && !isEmptyScalar(v) {
			res.Dropped = append(res.Dropped, k)
		}
	}

	for _, w := range wrappers {
		inner := m[w].(map[string]any)
		innerKeys := make([]string, 0, len(inner))
		for k := range inner {
			innerKeys = append(innerKeys, k)
		}
		sort.Strings(innerKeys)
		for _, k := range innerKeys {
			if _, exists := res.Values[k]; exists {
				continue
			}
			if s, ok := scalar(inner[k]); ok {
				res.Values[k] = s
			} else if _, isObj := inner[k].(map[string]any); isObj {
				res.Dropped = append(res.Dropped, w+"."+k)
			}
		}
	}
	return res
}

// scalar converts v to a flat value. It reports false for nil, nested
// objects, placeholders, and arrays holding non-scalars.
func scalar(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		s := strings.TrimSpace(t)
		if IsPlaceholder(s) {
			return nil, false
		}
		return s, true
	case bool:
		if t {
			return "Yes", true
		}
		return "No", true
	case json.Number:
		return t, true
	case float64:
		return json.Number(fmt.Sprint(t)), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := scalar(e)
			if !ok {
				if _, nested := e.(map[string]any); nested {
					return nil, false
				}
				if _, nested := e.([]any); nested {
					return nil, false
				}
				continue
			}
			parts = append(parts, fmt.Sprint(s))
		}
		if len(parts) == 0 {
			return nil, false
		}
		return strings.Join(parts, ", "), true
	default:
		return nil, false
	}
}

func isEmptyScalar(v any) bool {
	switch t := v.(type) {
	case string:
		return IsPlaceholder(t)
	case []any:
		for _, e := range t {
			if _, nested := e.(map[string]any); nested {
				return false
			}
			if _, nested := e.([]any); nested {
				return false
			}
		}
		return true
	}
	return false
}

// ExtractFlat runs all four stages over raw oracle output.
func ExtractFlat(raw string) (FlatResult, error) {
	obj, err := FirstObject(raw)
	if err != nil {
		return FlatResult{}, err
	}
	res := Flatten(Unwrap(obj))
	if len(res.Values) == 0 {
		return res, eris.Wrap(ErrNoJSON, "jsonx: object has no scalar values")
	}
	return res, nil
}
