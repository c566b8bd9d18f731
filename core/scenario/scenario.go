// Package scenario models the authored game content: a scenario is a script
// of monthly traffic and feature demands the player's infrastructure has to
// survive. It also resolves the request volume fed into cost aggregation for
// a given month.
package scenario

import (
	"strconv"

	"github.com/shopspring/decimal"

	"cloudbudget/core/cost"
	"cloudbudget/core/rates"
	"cloudbudget/core/structure"
	"cloudbudget/internal/errors"
)

// Feature is a capability the scenario asks the player to support.
type Feature struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Feature  string   `json:"feature"`
	Required []string `json:"required"`
}

// RequestFeature is one feature's demand within a month.
type RequestFeature struct {
	FeatureID string `json:"feature_id"`
	Request   int    `json:"request,omitempty"`
}

// MonthlyRequest is the scripted load for one month.
type MonthlyRequest struct {
	Month       int              `json:"month"`
	Feature     []RequestFeature `json:"feature"`
	Funds       int64            `json:"funds"`
	Description string           `json:"description"`
}

// Scenario is a full authored scenario.
type Scenario struct {
	ScenarioID string           `json:"scenario_id"`
	Name       string           `json:"name"`
	EndMonth   int              `json:"end_month"`
	Month      int              `json:"current_month"`
	Features   []Feature        `json:"features"`
	Requests   []MonthlyRequest `json:"requests,omitempty"`
	CreatedAt  string           `json:"created_at,omitempty"`
}

// Summary is the listing view of a scenario.
type Summary struct {
	ScenarioID   string `json:"scenario_id"`
	Name         string `json:"name"`
	EndMonth     int    `json:"end_month"`
	Month        int    `json:"current_month"`
	FeatureCount int    `json:"feature_count"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Summarize produces the listing view.
func (s *Scenario) Summarize() Summary {
	return Summary{
		ScenarioID:   s.ScenarioID,
		Name:         s.Name,
		EndMonth:     s.EndMonth,
		Month:        s.Month,
		FeatureCount: len(s.Features),
		CreatedAt:    s.CreatedAt,
	}
}

// MonthData returns the scripted load for a month.
func (s *Scenario) MonthData(month int) (MonthlyRequest, error) {
	for _, r := range s.Requests {
		if r.Month == month {
			return r, nil
		}
	}
	return MonthlyRequest{}, errors.NotFound("month data", strconv.Itoa(month)).
		WithContext("scenario_id", s.ScenarioID)
}

// FeatureByID looks a feature up by its identifier.
func (s *Scenario) FeatureByID(id string) (Feature, bool) {
	for _, f := range s.Features {
		if f.ID == id {
			return f, true
		}
	}
	return Feature{}, false
}

// RequestVolume resolves the total monthly request volume to feed into cost
// aggregation. Months that are not scripted resolve to a not-found error.
func (s *Scenario) RequestVolume(month int) (int, error) {
	data, err := s.MonthData(month)
	if err != nil {
		return 0, err
	}
	volume := 0
	for _, f := range data.Feature {
		if f.Request > 0 {
			volume += f.Request
		}
	}
	return volume, nil
}

// CostPreview is the what-if result of pricing one scripted month.
type CostPreview struct {
	ScenarioID      string   `json:"scenario_id"`
	Month           int      `json:"month"`
	TotalRequests   int      `json:"total_requests"`
	Budget          string   `json:"budget"`
	CalculatedCost  string   `json:"calculated_cost"`
	BudgetRemaining string   `json:"budget_remaining"`
	IsOverBudget    bool     `json:"is_over_budget"`
	FeaturesUsed    []string `json:"features_used"`
	Description     string   `json:"description"`
}

// PreviewCost prices a scripted month against the rate table, as if the
// player had built exactly the features the month demands. Features the
// scenario does not define are skipped.
func (s *Scenario) PreviewCost(month int, table rates.Table) (CostPreview, error) {
	data, err := s.MonthData(month)
	if err != nil {
		return CostPreview{}, err
	}

	structData := make(map[string]any, len(data.Feature))
	totalRequests := 0
	var used []string

	for _, fr := range data.Feature {
		feature, ok := s.FeatureByID(fr.FeatureID)
		if !ok {
			continue
		}
		structData[fr.FeatureID] = map[string]any{
			"type": feature.Type,
			"name": feature.Feature,
		}
		used = append(used, fr.FeatureID)
		if fr.Request > 0 {
			totalRequests += fr.Request
		}
	}

	normalized := structure.Normalize(structData)
	outcome := cost.AggregateDetailed(normalized.Usage, table, totalRequests)

	budget := decimal.NewFromInt(data.Funds)
	remaining := budget.Sub(outcome.Total)

	return CostPreview{
		ScenarioID:      s.ScenarioID,
		Month:           month,
		TotalRequests:   totalRequests,
		Budget:          budget.String(),
		CalculatedCost:  outcome.Total.String(),
		BudgetRemaining: remaining.String(),
		IsOverBudget:    outcome.Total.GreaterThan(budget),
		FeaturesUsed:    used,
		Description:     data.Description,
	}, nil
}
