package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseScalars(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{20.5, "20.5"},
		{"0.0002", "0.0002"},
		{json.Number("42"), "42"},
		{7, "7"},
		{int64(-3), "-3"},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%v): %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("Parse(%v) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseRejectsJunk(t *testing.T) {
	for _, in := range []any{nil, "not-a-number", []any{1}, map[string]any{}} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%v) should fail", in)
		}
	}
}

func TestParseOr(t *testing.T) {
	def := decimal.NewFromInt(1)
	if got := ParseOr(nil, def); !got.Equal(def) {
		t.Errorf("ParseOr(nil) = %s, want default", got)
	}
	if got := ParseOr("2.5", def); got.String() != "2.5" {
		t.Errorf("ParseOr(2.5) = %s", got)
	}
}

func TestClampNonNegative(t *testing.T) {
	if got := ClampNonNegative(decimal.NewFromInt(-5)); !got.IsZero() {
		t.Errorf("clamp(-5) = %s, want 0", got)
	}
	if got := ClampNonNegative(decimal.NewFromInt(5)); got.String() != "5" {
		t.Errorf("clamp(5) = %s, want 5", got)
	}
}

func TestRangeSortedOrder(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}
	var keys []string
	RangeSorted(m, func(k string, _ int) bool {
		keys = append(keys, k)
		return true
	})
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("iteration order = %v", keys)
	}
}
