// Package money centralizes monetary arithmetic for the game.
// All cost math goes through shopspring decimals; float64 never touches a
// funds balance or a rate.
package money

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse converts an untrusted JSON-ish scalar into a decimal amount.
// Stored rate tables and player payloads arrive as float64, string or
// json.Number depending on the decoder, so all of them are accepted.
func Parse(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("amount is missing")
	case decimal.Decimal:
		return n, nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case uint64:
		return decimal.NewFromUint64(n), nil
	default:
		return decimal.Zero, fmt.Errorf("amount has unsupported type %T", v)
	}
}

// ParseOr parses v and falls back to def when v is absent or unparseable.
func ParseOr(v any, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	d, err := Parse(v)
	if err != nil {
		return def
	}
	return d
}

// ClampNonNegative floors an amount at zero. Malformed player structures can
// smuggle negative quantities in; they must never turn into negative cost.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SortedKeys returns the keys of m in sorted order so that iteration over
// breakdown maps is reproducible across runs.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RangeSorted iterates over m in sorted key order.
func RangeSorted[V any](m map[string]V, fn func(string, V) bool) {
	for _, k := range SortedKeys(m) {
		if !fn(k, m[k]) {
			break
		}
	}
}

// Format renders an amount with two decimal places for reports.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
