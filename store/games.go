package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cloudbudget/core/game"
	"cloudbudget/core/money"
	"cloudbudget/internal/errors"
)

// Composite key formatting. Only this package builds or parses keys.
const (
	costsPK    = "costs"
	costsSK    = "metadata"
	scenarioPK = "scenario"
)

func userPK(userID string) string { return "user#" + userID }
func gameSK(gameID string) string { return "game#" + gameID }
func sandboxSK(id string) string { return "sandbox#" + id }
func trimPrefix(s, p string) string {
	if len(s) >= len(p) && s[:len(p)] == p {
		return s[len(p):]
	}
	return s
}

// Game is a stored game as the handlers see it.
type Game struct {
	UserID    string          `json:"user_id"`
	GameID    string          `json:"game_id"`
	Name      string          `json:"game_name"`
	Struct    map[string]any  `json:"struct"`
	Funds     decimal.Decimal `json:"funds"`
	Month     int             `json:"current_month"`
	Scenario  string          `json:"scenarioes"`
	Finished  bool            `json:"is_finished"`
	CreatedAt string          `json:"created_at"`
}

// State projects the progression-relevant fields.
func (g Game) State() game.State {
	return game.State{Funds: g.Funds, Month: g.Month, Finished: g.Finished}
}

// CreateGame provisions a fresh game plus its paired sandbox. A blank userID
// provisions a new player identity as well.
func (s *Store) CreateGame(ctx context.Context, userID, scenario, name string) (Game, string, error) {
	if userID == "" {
		userID = uuid.NewString()
	}
	gameID := uuid.NewString()
	sandboxID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	g := Game{
		UserID:    userID,
		GameID:    gameID,
		Name:      name,
		Struct:    nil,
		Funds:     decimal.Zero,
		Month:     0,
		Scenario:  scenario,
		Finished:  false,
		CreatedAt: now,
	}

	if err := s.Put(ctx, userPK(userID), gameSK(gameID), gameDoc(g)); err != nil {
		return Game{}, "", err
	}

	sandbox := map[string]any{
		"struct":     nil,
		"is_public":  false,
		"created_at": now,
	}
	if err := s.Put(ctx, userPK(userID), sandboxSK(sandboxID), sandbox); err != nil {
		return Game{}, "", err
	}

	return g, sandboxID, nil
}

// GetGame loads one game.
func (s *Store) GetGame(ctx context.Context, userID, gameID string) (Game, error) {
	doc, err := s.Get(ctx, userPK(userID), gameSK(gameID))
	if err != nil {
		return Game{}, err
	}
	return gameFromDoc(userID, gameID, doc), nil
}

// LatestActiveGame returns the player's first unfinished game.
func (s *Store) LatestActiveGame(ctx context.Context, userID string) (Game, error) {
	items, err := s.QueryPrefix(ctx, userPK(userID), "game#")
	if err != nil {
		return Game{}, err
	}
	for _, item := range items {
		if truthy(item.Doc["is_finished"]) {
			continue
		}
		gameID := trimPrefix(item.SK, "game#")
		return gameFromDoc(userID, gameID, item.Doc), nil
	}
	return Game{}, errors.NotFound("active game", userID)
}

// UpdateGameStruct replaces a game's infrastructure structure. The structure
// is the only game field mutated outside a report step.
func (s *Store) UpdateGameStruct(ctx context.Context, userID, gameID string, structData map[string]any) error {
	return s.Update(ctx, userPK(userID), gameSK(gameID), map[string]any{
		"struct": structData,
	})
}

// ApplyReport persists the outcome of one report step. The write is guarded
// on the month the step was computed from: if another report landed in
// between, the guard fails and the caller gets a state error instead of a
// double deduction.
func (s *Store) ApplyReport(ctx context.Context, userID, gameID string, fromMonth int, report game.Report) error {
	patch := map[string]any{
		"funds":         report.Funds.String(),
		"current_month": report.Month,
		"is_finished":   report.Finished,
	}
	guard := func(doc map[string]any) bool {
		return intFromAny(doc["current_month"], -1) == fromMonth && !truthy(doc["is_finished"])
	}
	return s.UpdateIf(ctx, userPK(userID), gameSK(gameID), patch, guard)
}

func gameDoc(g Game) map[string]any {
	return map[string]any{
		"game_name":     g.Name,
		"struct":        g.Struct,
		"funds":         g.Funds.String(),
		"current_month": g.Month,
		"scenarioes":    g.Scenario,
		"is_finished":   g.Finished,
		"created_at":    g.CreatedAt,
	}
}

func gameFromDoc(userID, gameID string, doc map[string]any) Game {
	structData, _ := doc["struct"].(map[string]any)
	return Game{
		UserID:    userID,
		GameID:    gameID,
		Name:      stringFromAny(doc["game_name"]),
		Struct:    structData,
		Funds:     money.ParseOr(doc["funds"], decimal.Zero),
		Month:     intFromAny(doc["current_month"], 0),
		Scenario:  stringFromAny(doc["scenarioes"]),
		Finished:  truthy(doc["is_finished"]),
		CreatedAt: stringFromAny(doc["created_at"]),
	}
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}

func intFromAny(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return int(i)
	default:
		return def
	}
}
