// Package game owns the month-progression state machine. One report step
// deducts a month's cost from the funds balance, advances the month counter
// and latches the finished flag when the balance goes negative.
package game

import (
	"github.com/shopspring/decimal"

	"cloudbudget/core/cost"
	"cloudbudget/internal/errors"
)

// State is the progression-relevant slice of a stored game.
type State struct {
	// Funds is the remaining budget.
	Funds decimal.Decimal `json:"funds"`

	// Month is the current simulated month, starting at 0.
	Month int `json:"current_month"`

	// Finished latches once funds go negative. Terminal.
	Finished bool `json:"is_finished"`
}

// Report is the outcome of one report step, handed back to the caller for
// persistence and for the player-facing response.
type Report struct {
	// Funds is the balance after deduction. May be negative exactly once,
	// on the step that finishes the game.
	Funds decimal.Decimal `json:"funds"`

	// Month is the advanced month counter.
	Month int `json:"current_month"`

	// Finished reports whether this step ended the game.
	Finished bool `json:"is_finished"`

	// TotalCost is the cost deducted this step.
	TotalCost decimal.Decimal `json:"total_cost"`

	// Breakdown is the per-resource cost used for this step.
	Breakdown cost.Breakdown `json:"breakdown"`
}

// AdvanceMonth applies one report step to state. It is a pure function: the
// caller persists the result atomically or not at all.
//
// Game over is strictly funds' < 0. Landing on exactly zero leaves the game
// alive.
func AdvanceMonth(state State, totalCost decimal.Decimal, breakdown cost.Breakdown) (Report, error) {
	if state.Finished {
		return Report{}, errors.State("game is already finished")
	}
	if state.Month < 0 {
		return Report{}, errors.State("month counter is negative")
	}

	funds := state.Funds.Sub(totalCost)

	return Report{
		Funds:     funds,
		Month:     state.Month + 1,
		Finished:  funds.IsNegative(),
		TotalCost: totalCost,
		Breakdown: breakdown,
	}, nil
}
