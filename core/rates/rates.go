// Package rates defines the billing rule table that prices player
// infrastructure. The table is loaded from the store per request and treated
// as an immutable value by everything downstream.
package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cloudbudget/core/money"
)

// Kind is the billing kind of a rule.
type Kind string

const (
	// KindPerMonth is a flat monthly charge per resource unit.
	KindPerMonth Kind = "per_month"

	// KindPerRequest is a charge multiplied by monthly request volume.
	KindPerRequest Kind = "per_request"
)

// BillingRule prices a single resource type.
type BillingRule struct {
	// Cost is the unit price. Invariant: Cost >= 0.
	Cost decimal.Decimal `json:"cost"`

	// Kind selects how Cost is applied.
	Kind Kind `json:"type"`
}

// Table maps a lowercase resource type name to its billing rule.
type Table map[string]BillingRule

// Lookup finds the rule for a resource type, matching case-insensitively.
func (t Table) Lookup(resourceType string) (BillingRule, bool) {
	rule, ok := t[strings.ToLower(resourceType)]
	return rule, ok
}

// Empty reports whether the table has no rules.
func (t Table) Empty() bool {
	return len(t) == 0
}

// ParseTable builds a Table from an untrusted stored document of the form
// {"ec2": {"cost": 20, "type": "per_month"}, ...}. A malformed entry is a
// configuration defect in that entry only: it is skipped and reported, the
// rest of the table still loads.
func ParseTable(raw map[string]any) (Table, []string) {
	table := make(Table, len(raw))
	var skipped []string

	for name, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("%s: entry is not an object", name))
			continue
		}

		cost, err := money.Parse(entry["cost"])
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if cost.IsNegative() {
			skipped = append(skipped, fmt.Sprintf("%s: negative cost %s", name, cost))
			continue
		}

		kind, err := parseKind(entry["type"])
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		table[strings.ToLower(name)] = BillingRule{Cost: cost, Kind: kind}
	}

	return table, skipped
}

func parseKind(v any) (Kind, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("billing type is missing")
	}
	switch Kind(strings.ToLower(s)) {
	case KindPerMonth:
		return KindPerMonth, nil
	case KindPerRequest:
		return KindPerRequest, nil
	default:
		return "", fmt.Errorf("unknown billing type %q", s)
	}
}
