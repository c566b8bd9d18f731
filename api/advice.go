package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cloudbudget/advice"
	"cloudbudget/store"
)

type adviceRequest struct {
	GameID   string `json:"game_id"`
	Question string `json:"question"`
}

// getAdvice asks the LLM backend for advice on the caller's current game.
func (s *Server) getAdvice(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	userID := callerID(c)

	var g store.Game
	var err error
	if req.GameID != "" {
		g, err = s.store.GetGame(ctx, userID, req.GameID)
	} else {
		g, err = s.store.LatestActiveGame(ctx, userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := s.advice.Advise(ctx, advice.Request{
		Struct:   g.Struct,
		Funds:    g.Funds.String(),
		Month:    g.Month,
		Question: req.Question,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
