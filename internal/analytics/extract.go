// Package analytics turns the loosely shaped report payload into a fixed
// Analytics snapshot. Lookups never fail; missing or unusable fields fall
// back to per-field defaults.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed payload")

// Payload is a decoded JSON object whose structure is only partly known.
type Payload map[string]any

// Decode parses a JSON object. Anything other than an object is malformed.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	return p, nil
}

// Extract walks a dotted path through nested objects. It returns def when a
// segment is missing, an intermediate value is not an object, or the final
// value is falsy. A stored zero is therefore indistinguishable from a
// missing field.
func Extract(p Payload, path string, def any) any {
	var cur any = map[string]any(p)
	for _, key := range strings.Split(path, ".") {
		m, ok := asObject(cur)
		if !ok {
			return def
		}
		cur, ok = m[key]
		if !ok {
			return def
		}
	}
	if falsy(cur) {
		return def
	}
	return cur
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	case Payload:
		return m, m != nil
	}
	return nil, false
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0 || math.IsNaN(x)
	case int:
		return x == 0
	case string:
		return x == ""
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// Int reads a count, defaulting to 0.
func Int(p Payload, path string) int {
	n, ok := number(Extract(p, path, nil))
	if !ok {
		return 0
	}
	return int(n)
}

// Counts reads an object of label -> count. Non-numeric entries are dropped.
func Counts(p Payload, path string) map[string]int {
	out := map[string]int{}
	m, ok := asObject(Extract(p, path, nil))
	if !ok {
		return out
	}
	for k, v := range m {
		if n, ok := number(v); ok {
			out[k] = int(n)
		}
	}
	return out
}

// Ratings reads an object of question -> average. Numeric strings are
// accepted the way a browser parseFloat would.
func Ratings(p Payload, path string) map[string]float64 {
	out := map[string]float64{}
	m, ok := asObject(Extract(p, path, nil))
	if !ok {
		return out
	}
	for k, v := range m {
		if n, ok := number(v); ok {
			out[k] = n
		}
	}
	return out
}

// Strings reads a list of strings, skipping anything else.
func Strings(p Payload, path string) []string {
	out := []string{}
	list, ok := Extract(p, path, nil).([]any)
	if !ok {
		return out
	}
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}
