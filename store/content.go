package store

import (
	"context"
	"encoding/json"
	"time"

	"cloudbudget/core/scenario"
	"cloudbudget/internal/errors"
)

// RawRates loads the stored rate-table document, the map handed to
// rates.ParseTable. An absent record surfaces as not-found; the route layer
// decides whether that is fatal.
func (s *Store) RawRates(ctx context.Context) (map[string]any, error) {
	doc, err := s.Get(ctx, costsPK, costsSK)
	if err != nil {
		return nil, err
	}
	costs, ok := doc["costs"].(map[string]any)
	if !ok {
		return nil, errors.NotFound("rate table", costsPK)
	}
	return costs, nil
}

// PutRates replaces the stored rate table.
func (s *Store) PutRates(ctx context.Context, costs map[string]any) error {
	return s.Put(ctx, costsPK, costsSK, map[string]any{
		"costs":      costs,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// PutScenario stores authored scenario content under its id.
func (s *Store) PutScenario(ctx context.Context, sc *scenario.Scenario) error {
	doc, err := toDoc(sc)
	if err != nil {
		return errors.Storage("encode scenario", err)
	}
	return s.Put(ctx, scenarioPK, sc.ScenarioID, doc)
}

// GetScenario loads one scenario.
func (s *Store) GetScenario(ctx context.Context, scenarioID string) (*scenario.Scenario, error) {
	doc, err := s.Get(ctx, scenarioPK, scenarioID)
	if err != nil {
		return nil, err
	}
	var sc scenario.Scenario
	if err := fromDoc(doc, &sc); err != nil {
		return nil, errors.Storage("decode scenario", err)
	}
	if sc.ScenarioID == "" {
		sc.ScenarioID = scenarioID
	}
	return &sc, nil
}

// ListScenarios loads every stored scenario.
func (s *Store) ListScenarios(ctx context.Context) ([]*scenario.Scenario, error) {
	items, err := s.QueryPrefix(ctx, scenarioPK, "")
	if err != nil {
		return nil, err
	}
	scenarios := make([]*scenario.Scenario, 0, len(items))
	for _, item := range items {
		var sc scenario.Scenario
		if err := fromDoc(item.Doc, &sc); err != nil {
			return nil, errors.Storage("decode scenario", err)
		}
		if sc.ScenarioID == "" {
			sc.ScenarioID = item.SK
		}
		scenarios = append(scenarios, &sc)
	}
	return scenarios, nil
}

// FindFeature searches every scenario for a feature id.
func (s *Store) FindFeature(ctx context.Context, featureID string) (scenario.Feature, *scenario.Scenario, error) {
	scenarios, err := s.ListScenarios(ctx)
	if err != nil {
		return scenario.Feature{}, nil, err
	}
	for _, sc := range scenarios {
		if f, ok := sc.FeatureByID(featureID); ok {
			return f, sc, nil
		}
	}
	return scenario.Feature{}, nil, errors.NotFound("feature", featureID)
}

func toDoc(v any) (map[string]any, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDoc(doc map[string]any, v any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}
