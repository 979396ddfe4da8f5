package dp

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Number coerces v to a finite float64.
//
// Accepts any Go numeric type, json.Number and numeric strings (surrounding
// whitespace is ignored). Booleans, nil, NaN and infinities are not numbers.
//
// Returns:
//   - float64: The numeric value, or 0 when ok is false
//   - bool: true if v held a usable number
func Number(v Value) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberOr returns Number(v), or def when v is not numeric.
func NumberOr(v Value, def float64) float64 {
	if f, ok := Number(v); ok {
		return f
	}
	return def
}

// Int parses the leading integer of v.
//
// Numbers are truncated toward zero. Strings are read up to the first
// non-digit after an optional sign, so "3" and "3rd" both yield 3.
func Int(v Value) (int, bool) {
	if s, ok := v.(string); ok {
		return leadingInt(strings.TrimSpace(s))
	}
	f, ok := Number(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool reports the truthiness of a DP value.
//
// bool is returned as-is, numbers are true when non-zero, and strings are true
// for "true", "1" and "on" (case-insensitive). Everything else is false.
func Bool(v Value) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "on":
			return true
		}
		return false
	}
	if f, ok := Number(v); ok {
		return f != 0
	}
	return false
}

// String renders v as a string. nil becomes "".
func String(v Value) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	}
	if f, ok := Number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// Equal compares two values the way the change-suppression caches need.
//
// Numbers compare by value regardless of their Go type (220 == 220.0), so a
// value decoded from JSON matches the one written optimistically.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr {
		af, aok := Number(a)
		bf, bok := Number(b)
		if aok && bok {
			return af == bf
		}
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
