package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// listScenarios returns the summary view of every stored scenario.
func (s *Server) listScenarios(c *gin.Context) {
	scenarios, err := s.store.ListScenarios(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	summaries := make([]any, 0, len(scenarios))
	for _, sc := range scenarios {
		summaries = append(summaries, sc.Summarize())
	}
	c.JSON(http.StatusOK, summaries)
}

// getScenario returns one scenario in full, scripted months included.
func (s *Server) getScenario(c *gin.Context) {
	sc, err := s.store.GetScenario(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

// getScenarioMonth returns the scripted load for one month.
func (s *Server) getScenarioMonth(c *gin.Context) {
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be a number"})
		return
	}

	sc, err := s.store.GetScenario(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := sc.MonthData(month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scenario_id": sc.ScenarioID,
		"month":       data.Month,
		"feature":     data.Feature,
		"funds":       data.Funds,
		"description": data.Description,
	})
}

// previewScenarioCost prices a scripted month as if the player had built
// exactly what the month demands.
func (s *Server) previewScenarioCost(c *gin.Context) {
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be a number"})
		return
	}

	ctx := c.Request.Context()
	sc, err := s.store.GetScenario(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	table, err := s.rates.Table(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	preview, err := sc.PreviewCost(month, table)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// getFeature looks a feature id up across every scenario.
func (s *Server) getFeature(c *gin.Context) {
	feature, sc, err := s.store.FindFeature(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feature_id":  feature.ID,
		"scenario_id": sc.ScenarioID,
		"type":        feature.Type,
		"feature":     feature.Feature,
		"required":    feature.Required,
	})
}
