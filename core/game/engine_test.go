package game

import (
	"testing"

	"github.com/shopspring/decimal"

	"cloudbudget/core/cost"
	"cloudbudget/internal/errors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdvanceMonthDeductsAndAdvances(t *testing.T) {
	state := State{Funds: d("100"), Month: 3}

	report, err := AdvanceMonth(state, d("150"), cost.Breakdown{"ec2": d("150")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Funds.String() != "-50" {
		t.Errorf("funds = %s, want -50", report.Funds)
	}
	if report.Month != 4 {
		t.Errorf("month = %d, want 4", report.Month)
	}
	if !report.Finished {
		t.Error("negative funds must finish the game")
	}
	if report.Breakdown["ec2"].String() != "150" {
		t.Errorf("breakdown not echoed: %v", report.Breakdown)
	}
}

func TestAdvanceMonthExactZeroStaysAlive(t *testing.T) {
	state := State{Funds: d("100"), Month: 0}

	report, err := AdvanceMonth(state, d("100"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Funds.IsZero() {
		t.Errorf("funds = %s, want 0", report.Funds)
	}
	if report.Finished {
		t.Error("landing on exactly zero must not finish the game")
	}
}

func TestAdvanceMonthGameOverBoundary(t *testing.T) {
	state := State{Funds: d("100"), Month: 0}

	report, err := AdvanceMonth(state, d("100.01"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Finished {
		t.Error("one cent over the balance must finish the game")
	}
	if report.Funds.String() != "-0.01" {
		t.Errorf("funds = %s, want -0.01", report.Funds)
	}
}

func TestAdvanceMonthRejectsFinishedGame(t *testing.T) {
	state := State{Funds: d("10"), Month: 1}

	report, err := AdvanceMonth(state, d("20"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Finished {
		t.Fatal("setup step should have finished the game")
	}

	next := State{Funds: report.Funds, Month: report.Month, Finished: report.Finished}
	_, err = AdvanceMonth(next, d("1"), nil)
	if err == nil {
		t.Fatal("report against a finished game must be rejected")
	}
	if !errors.IsType(err, errors.TypeState) {
		t.Errorf("error type = %v, want %s", err, errors.TypeState)
	}
}

func TestAdvanceMonthRejectsNegativeMonth(t *testing.T) {
	_, err := AdvanceMonth(State{Funds: d("10"), Month: -1}, d("1"), nil)
	if !errors.IsType(err, errors.TypeState) {
		t.Fatalf("error = %v, want %s", err, errors.TypeState)
	}
}

func TestAdvanceMonthZeroCost(t *testing.T) {
	report, err := AdvanceMonth(State{Funds: d("0"), Month: 0}, decimal.Zero, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Finished {
		t.Error("zero funds and zero cost must stay alive")
	}
	if report.Month != 1 {
		t.Errorf("month = %d, want 1", report.Month)
	}
}
