package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cloudbudget/core/cost"
	"cloudbudget/core/structure"
)

type calculateRequest struct {
	Struct map[string]any `json:"struct"`
	Volume int            `json:"monthly_request_volume"`
}

// getCosts returns the current rate table.
func (s *Server) getCosts(c *gin.Context) {
	raw, err := s.store.RawRates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"costs": raw})
}

// calculateCosts prices an arbitrary structure without touching any game.
// The sandbox screen uses this for live what-if pricing.
func (s *Server) calculateCosts(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	table, err := s.rates.Table(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	normalized := structure.Normalize(req.Struct)
	outcome := cost.AggregateDetailed(normalized.Usage, table, req.Volume)

	resp := gin.H{
		"total":       outcome.Total,
		"per_month":   outcome.PerMonth,
		"per_request": outcome.PerRequest,
		"breakdown":   outcome.Breakdown,
	}
	if normalized.Partial {
		resp["partial"] = true
		resp["notes"] = normalized.Notes
	}
	c.JSON(http.StatusOK, resp)
}
