package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudbudget/advice"
	"cloudbudget/core/scenario"
	"cloudbudget/internal/config"
	"cloudbudget/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"

	srv := NewServer(cfg, st, advice.NewClient(cfg.Advice))
	return srv, st
}

func seedContent(t *testing.T, st *store.Store, monthFunds int64) {
	t.Helper()
	ctx := context.Background()

	err := st.PutRates(ctx, map[string]any{
		"ec2":    map[string]any{"cost": "20.00", "type": "per_month"},
		"lambda": map[string]any{"cost": "0.001", "type": "per_request"},
	})
	if err != nil {
		t.Fatalf("seed rates: %v", err)
	}

	sc := &scenario.Scenario{
		ScenarioID: "first_scenario",
		Name:       "Startup Journey",
		EndMonth:   2,
		Features: []scenario.Feature{
			{ID: "f-web", Type: "ec2", Feature: "web frontend"},
		},
		Requests: []scenario.MonthlyRequest{
			{Month: 0, Funds: monthFunds, Description: "launch", Feature: []scenario.RequestFeature{
				{FeatureID: "f-web", Request: 1000},
			}},
			{Month: 1, Funds: 0, Description: "steady", Feature: []scenario.RequestFeature{
				{FeatureID: "f-web", Request: 2000},
			}},
		},
	}
	if err := st.PutScenario(ctx, sc); err != nil {
		t.Fatalf("seed scenario: %v", err)
	}
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func createTestGame(t *testing.T, srv *Server) (token, gameID, sandboxID string) {
	t.Helper()
	w, resp := doJSON(t, srv, http.MethodPost, "/play/create", "", map[string]any{
		"scenarioes": "first_scenario",
		"game_name":  "my startup",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create game status = %d, body = %s", w.Code, w.Body)
	}
	token, _ = resp["token"].(string)
	gameID, _ = resp["game_id"].(string)
	sandboxID, _ = resp["sandbox_id"].(string)
	if token == "" || gameID == "" || sandboxID == "" {
		t.Fatalf("create response missing identifiers: %v", resp)
	}
	return token, gameID, sandboxID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w, resp := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("health = %d %v", w.Code, resp)
	}
}

func TestCreateGameRejectsUnknownScenario(t *testing.T) {
	srv, _ := newTestServer(t)
	w, _ := doJSON(t, srv, http.MethodPost, "/play/create", "", map[string]any{
		"scenarioes": "missing",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	w, _ := doJSON(t, srv, http.MethodGet, "/play/games", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	w, _ = doJSON(t, srv, http.MethodGet, "/play/games", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", w.Code)
	}
}

func TestReportStep(t *testing.T) {
	srv, st := newTestServer(t)
	seedContent(t, st, 500)
	token, gameID, _ := createTestGame(t, srv)

	w, _ := doJSON(t, srv, http.MethodPut, "/play/struct/"+gameID, token, map[string]any{
		"struct": map[string]any{"web": map[string]any{"type": "ec2"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update struct status = %d, body = %s", w.Code, w.Body)
	}

	w, resp := doJSON(t, srv, http.MethodPost, "/play/report/"+gameID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d, body = %s", w.Code, w.Body)
	}

	// 0 funds + 500 scripted income - 20 fixed ec2 cost.
	if resp["funds"] != "480" {
		t.Errorf("funds = %v, want 480", resp["funds"])
	}
	if resp["total_cost"] != "20" {
		t.Errorf("total_cost = %v", resp["total_cost"])
	}
	if resp["current_month"] != float64(1) {
		t.Errorf("current_month = %v", resp["current_month"])
	}
	if resp["is_finished"] != false {
		t.Errorf("is_finished = %v", resp["is_finished"])
	}
	breakdown, _ := resp["breakdown"].(map[string]any)
	if breakdown["ec2"] != "20" {
		t.Errorf("breakdown = %v", breakdown)
	}

	// The latest-game view must reflect the persisted step.
	w, resp = doJSON(t, srv, http.MethodGet, "/play/games", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get games status = %d", w.Code)
	}
	if resp["current_month"] != float64(1) || resp["funds"] != "480" {
		t.Errorf("persisted game = %v", resp)
	}
}

func TestReportFinishesGameAndRejectsFurtherSteps(t *testing.T) {
	srv, st := newTestServer(t)
	seedContent(t, st, 10) // month income below the fixed cost
	token, gameID, _ := createTestGame(t, srv)

	w, _ := doJSON(t, srv, http.MethodPut, "/play/struct/"+gameID, token, map[string]any{
		"struct": map[string]any{"web": map[string]any{"type": "ec2"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update struct: %d", w.Code)
	}

	w, resp := doJSON(t, srv, http.MethodPost, "/play/report/"+gameID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d, body = %s", w.Code, w.Body)
	}
	if resp["is_finished"] != true || resp["funds"] != "-10" {
		t.Fatalf("finishing report = %v", resp)
	}

	w, _ = doJSON(t, srv, http.MethodPost, "/play/report/"+gameID, token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("report on finished game status = %d, want 409", w.Code)
	}
}

func TestCalculateCosts(t *testing.T) {
	srv, st := newTestServer(t)
	seedContent(t, st, 500)

	w, resp := doJSON(t, srv, http.MethodPost, "/costs/calculate", "", map[string]any{
		"struct": map[string]any{
			"web": map[string]any{"type": "ec2"},
			"fn":  map[string]any{"type": "lambda"},
		},
		"monthly_request_volume": 10000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	// 20 fixed + 0.001 * 10000 variable.
	if resp["total"] != "30" {
		t.Errorf("total = %v, want 30", resp["total"])
	}
	if resp["per_request"] != "10" {
		t.Errorf("per_request = %v", resp["per_request"])
	}
}

func TestGetCostsAndScenarioEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	seedContent(t, st, 500)

	w, resp := doJSON(t, srv, http.MethodGet, "/costs", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("costs status = %d", w.Code)
	}
	costs, _ := resp["costs"].(map[string]any)
	if _, ok := costs["ec2"]; !ok {
		t.Errorf("costs = %v", resp)
	}

	w, resp = doJSON(t, srv, http.MethodGet, "/scenarios/first_scenario/month/0", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("month status = %d", w.Code)
	}
	if resp["funds"] != float64(500) {
		t.Errorf("month funds = %v", resp["funds"])
	}

	w, _ = doJSON(t, srv, http.MethodGet, "/scenarios/first_scenario/month/99", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unscripted month status = %d, want 404", w.Code)
	}

	w, resp = doJSON(t, srv, http.MethodGet, "/features/f-web", "", nil)
	if w.Code != http.StatusOK || resp["type"] != "ec2" {
		t.Errorf("feature = %d %v", w.Code, resp)
	}
}

func TestShareFlow(t *testing.T) {
	srv, st := newTestServer(t)
	seedContent(t, st, 500)
	token, _, sandboxID := createTestGame(t, srv)

	w, _ := doJSON(t, srv, http.MethodPut, "/share/structure/"+sandboxID, token, map[string]any{
		"struct": map[string]any{"web": map[string]any{"type": "ec2"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update sandbox status = %d, body = %s", w.Code, w.Body)
	}

	// Unpublished: invisible to anonymous readers, visible to the owner.
	w, _ = doJSON(t, srv, http.MethodGet, "/share/structure/"+sandboxID, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("anonymous read of private sandbox = %d, want 404", w.Code)
	}
	w, _ = doJSON(t, srv, http.MethodGet, "/share/structure/"+sandboxID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner read of private sandbox = %d", w.Code)
	}

	w, _ = doJSON(t, srv, http.MethodPost, "/share/publish/"+sandboxID, token, map[string]any{
		"is_public": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("publish status = %d", w.Code)
	}

	w, resp := doJSON(t, srv, http.MethodGet, "/share/structures", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if resp["total_count"] != float64(1) {
		t.Errorf("total_count = %v", resp["total_count"])
	}

	w, resp = doJSON(t, srv, http.MethodGet, "/share/structure/"+sandboxID, "", nil)
	if w.Code != http.StatusOK || resp["is_public"] != true {
		t.Errorf("published sandbox = %d %v", w.Code, resp)
	}
}

func TestAdviceEndpoint(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Use lambda for spiky load."}},
			},
		})
	}))
	defer backend.Close()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Advice.Endpoint = backend.URL
	srv := NewServer(cfg, st, advice.NewClient(cfg.Advice))

	seedContent(t, st, 500)
	token, gameID, _ := createTestGame(t, srv)

	w, resp := doJSON(t, srv, http.MethodPost, "/advice", token, map[string]any{
		"game_id":  gameID,
		"question": "how do I cut cost?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("advice status = %d, body = %s", w.Code, w.Body)
	}
	if resp["advice"] != "Use lambda for spiky load." {
		t.Errorf("advice = %v", resp["advice"])
	}
}

func TestAdviceUnconfiguredIsUnavailable(t *testing.T) {
	srv, st := newTestServer(t)
	seedContent(t, st, 500)
	token, gameID, _ := createTestGame(t, srv)

	w, _ := doJSON(t, srv, http.MethodPost, "/advice", token, map[string]any{"game_id": gameID})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
