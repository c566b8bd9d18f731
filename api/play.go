package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cloudbudget/core/cost"
	"cloudbudget/core/game"
	"cloudbudget/core/structure"
	"cloudbudget/internal/errors"
	"cloudbudget/internal/security"
	"cloudbudget/store"
)

// sessionLifetime bounds a minted player token. Long on purpose: a game is
// meant to be picked up again days later.
const sessionLifetime = 30 * 24 * time.Hour

type createGameRequest struct {
	Scenario string `json:"scenarioes"`
	GameName string `json:"game_name"`
}

type updateStructRequest struct {
	Struct map[string]any `json:"struct"`
}

func gameView(g store.Game) gin.H {
	return gin.H{
		"user_id":       g.UserID,
		"game_id":       g.GameID,
		"game_name":     g.Name,
		"struct":        g.Struct,
		"funds":         g.Funds,
		"current_month": g.Month,
		"scenarioes":    g.Scenario,
		"is_finished":   g.Finished,
		"created_at":    g.CreatedAt,
	}
}

// createGame provisions a fresh game, its sandbox and a player token. The
// token carries the minted user id; the client presents it on every later
// call.
func (s *Server) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Scenario == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing scenarioes"})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetScenario(ctx, req.Scenario); err != nil {
		respondError(c, err)
		return
	}

	g, sandboxID, err := s.store.CreateGame(ctx, "", req.Scenario, req.GameName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := security.GenerateToken(s.cfg.Auth.JWTSecret, g.UserID, g.Name, sessionLifetime)
	if err != nil {
		respondError(c, errors.Internal("sign player token", err))
		return
	}

	resp := gameView(g)
	resp["sandbox_id"] = sandboxID
	resp["token"] = token
	c.JSON(http.StatusOK, resp)
}

// getLatestGame returns the caller's current unfinished game.
func (s *Server) getLatestGame(c *gin.Context) {
	g, err := s.store.LatestActiveGame(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameView(g))
}

// getScenarioIndex lists the scenario metadata shown on the start screen.
func (s *Server) getScenarioIndex(c *gin.Context) {
	scenarios, err := s.store.ListScenarios(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	summaries := make([]any, 0, len(scenarios))
	for _, sc := range scenarios {
		summaries = append(summaries, sc.Summarize())
	}
	c.JSON(http.StatusOK, gin.H{"scenarioes": summaries})
}

// updateStruct replaces a game's infrastructure structure. This is the only
// game mutation outside the report step.
func (s *Server) updateStruct(c *gin.Context) {
	var req updateStructRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	userID := callerID(c)
	gameID := c.Param("gameID")
	if err := s.store.UpdateGameStruct(c.Request.Context(), userID, gameID, req.Struct); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "struct": req.Struct})
}

// report runs one simulated month: price the player's structure against the
// scripted demand, credit the month's scripted income, deduct the cost and
// advance. The persist is guarded on the month the step was computed from,
// so a concurrent double-submit deducts at most once.
func (s *Server) report(c *gin.Context) {
	userID := callerID(c)
	gameID := c.Param("gameID")
	ctx := c.Request.Context()

	g, err := s.store.GetGame(ctx, userID, gameID)
	if err != nil {
		respondError(c, err)
		return
	}
	if g.Finished {
		respondError(c, errors.State("game is already finished"))
		return
	}

	sc, err := s.store.GetScenario(ctx, g.Scenario)
	if err != nil {
		respondError(c, err)
		return
	}
	monthData, err := sc.MonthData(g.Month)
	if err != nil {
		respondError(c, err)
		return
	}
	volume, err := sc.RequestVolume(g.Month)
	if err != nil {
		respondError(c, err)
		return
	}

	table, err := s.rates.Table(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	normalized := structure.Normalize(g.Struct)
	outcome := cost.AggregateDetailed(normalized.Usage, table, volume)

	state := g.State()
	state.Funds = state.Funds.Add(decimal.NewFromInt(monthData.Funds))

	rep, err := game.AdvanceMonth(state, outcome.Total, outcome.Breakdown)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := s.store.ApplyReport(ctx, userID, gameID, g.Month, rep); err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"game_id":        gameID,
		"funds":          rep.Funds,
		"current_month":  rep.Month,
		"is_finished":    rep.Finished,
		"total_cost":     rep.TotalCost,
		"per_month":      outcome.PerMonth,
		"per_request":    outcome.PerRequest,
		"breakdown":      rep.Breakdown,
		"month_funds":    monthData.Funds,
		"request_volume": volume,
		"description":    monthData.Description,
	}
	if normalized.Partial {
		resp["partial"] = true
		resp["notes"] = normalized.Notes
	}
	c.JSON(http.StatusOK, resp)
}
