package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cloudbudget/internal/errors"
	"cloudbudget/internal/security"
)

type publishRequest struct {
	IsPublic *bool `json:"is_public"`
}

// listSharedStructures pages through published sandbox structures. Public:
// no token needed to browse.
func (s *Server) listSharedStructures(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	result, err := s.store.ListPublicSandboxes(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getSharedStructure returns one sandbox structure. A published sandbox is
// visible to anyone; an unpublished one only to its owner, identified by an
// unverified token subject since browsing stays anonymous.
func (s *Server) getSharedStructure(c *gin.Context) {
	shared, err := s.store.GetSandbox(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !shared.IsPublic {
		caller := ""
		if token, ok := bearerToken(c); ok {
			caller, _ = security.ExtractSubject(token)
		}
		if caller == "" || caller != shared.UserID {
			respondError(c, errors.NotFound("sandbox", c.Param("id")))
			return
		}
	}

	c.JSON(http.StatusOK, shared)
}

// updateSharedStructure replaces the caller's own sandbox structure.
func (s *Server) updateSharedStructure(c *gin.Context) {
	var req updateStructRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sandboxID := c.Param("id")
	if err := s.store.UpdateSandboxStruct(c.Request.Context(), callerID(c), sandboxID, req.Struct); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sandbox_id": sandboxID, "struct": req.Struct})
}

// publishStructure toggles public visibility of the caller's own sandbox.
func (s *Server) publishStructure(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	public := true
	if req.IsPublic != nil {
		public = *req.IsPublic
	}

	sandboxID := c.Param("id")
	if err := s.store.PublishSandbox(c.Request.Context(), callerID(c), sandboxID, public); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sandbox_id": sandboxID, "is_public": public})
}
