package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harunnryd/voxa/pkg/store"
)

func (s *Server) getSettings(c *gin.Context) {
	freq, err := s.store.ReferenceFrequency(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	maxContext, err := s.store.MaxContextConversations(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reference_frequency":       freq,
		"max_context_conversations": maxContext,
	})
}

func (s *Server) setReferenceFrequency(c *gin.Context) {
	var req store.ReferenceFrequency
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.SetReferenceFrequency(c.Request.Context(), req); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) setMaxContextConversations(c *gin.Context) {
	var req struct {
		Count *int `json:"count" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.SetMaxContextConversations(c.Request.Context(), *req.Count); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
