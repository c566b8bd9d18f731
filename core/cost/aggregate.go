// Package cost combines normalized usage with the rate table to price one
// simulated month. All arithmetic is decimal; results are deterministic for
// identical inputs.
package cost

import (
	"github.com/shopspring/decimal"

	"cloudbudget/core/money"
	"cloudbudget/core/rates"
	"cloudbudget/core/structure"
)

// Breakdown maps a lowercase resource type to its cost contribution for the
// month. The sum of all entries equals the total.
type Breakdown map[string]decimal.Decimal

// Outcome is a priced month with its fixed/variable split.
type Outcome struct {
	// Total is the full cost for the month.
	Total decimal.Decimal `json:"total"`

	// PerMonth is the fixed monthly portion.
	PerMonth decimal.Decimal `json:"per_month"`

	// PerRequest is the request-volume-driven portion.
	PerRequest decimal.Decimal `json:"per_request"`

	// Breakdown is the per-resource-type contribution.
	Breakdown Breakdown `json:"breakdown"`
}

// Aggregate prices usage against the rate table for a month with the given
// request volume. Usage entries with no matching rate contribute nothing and
// are omitted from the breakdown; the rate table legitimately lags behind
// game content.
func Aggregate(usage structure.Usage, table rates.Table, monthlyRequestVolume int) (decimal.Decimal, Breakdown) {
	outcome := AggregateDetailed(usage, table, monthlyRequestVolume)
	return outcome.Total, outcome.Breakdown
}

// AggregateDetailed is Aggregate with the fixed/variable split retained for
// reporting endpoints.
func AggregateDetailed(usage structure.Usage, table rates.Table, monthlyRequestVolume int) Outcome {
	if monthlyRequestVolume < 0 {
		monthlyRequestVolume = 0
	}
	volume := decimal.NewFromInt(int64(monthlyRequestVolume))

	outcome := Outcome{
		Total:      decimal.Zero,
		PerMonth:   decimal.Zero,
		PerRequest: decimal.Zero,
		Breakdown:  Breakdown{},
	}

	money.RangeSorted(usage, func(resourceType string, entry structure.Entry) bool {
		rule, ok := table.Lookup(resourceType)
		if !ok {
			return true
		}

		var contribution decimal.Decimal
		switch rule.Kind {
		case rates.KindPerMonth:
			quantity := decimal.NewFromInt(int64(entry.Quantity))
			contribution = rule.Cost.Mul(money.ClampNonNegative(quantity))
			outcome.PerMonth = outcome.PerMonth.Add(contribution)
		case rates.KindPerRequest:
			multiplier := money.ClampNonNegative(entry.Multiplier)
			contribution = rule.Cost.Mul(volume).Mul(multiplier)
			outcome.PerRequest = outcome.PerRequest.Add(contribution)
		default:
			return true
		}

		key := resourceType
		outcome.Breakdown[key] = outcome.Breakdown[key].Add(contribution)
		outcome.Total = outcome.Total.Add(contribution)
		return true
	})

	return outcome
}
