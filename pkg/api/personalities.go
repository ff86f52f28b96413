package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harunnryd/voxa/pkg/store"
)

type personalityReq struct {
	Name             string              `json:"name" binding:"required"`
	Instructions     string              `json:"instructions"`
	SpeakingStyle    store.SpeakingStyle `json:"speaking_style"`
	KnowledgeDomains []string            `json:"knowledge_domains"`
}

type personalityResp struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Instructions     string              `json:"instructions"`
	SpeakingStyle    store.SpeakingStyle `json:"speaking_style"`
	KnowledgeDomains []string            `json:"knowledge_domains"`
	Active           bool                `json:"active"`
	Version          int                 `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
}

func toPersonalityResp(p store.Personality) personalityResp {
	domains := p.KnowledgeDomains
	if domains == nil {
		domains = []string{}
	}
	return personalityResp{
		ID:               p.ID,
		Name:             p.Name,
		Instructions:     p.Instructions,
		SpeakingStyle:    p.SpeakingStyle,
		KnowledgeDomains: domains,
		Active:           p.Active,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
	}
}

func (s *Server) listPersonalities(c *gin.Context) {
	personas, err := s.store.Personalities(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]personalityResp, 0, len(personas))
	for _, p := range personas {
		out = append(out, toPersonalityResp(p))
	}
	c.JSON(http.StatusOK, gin.H{"personalities": out})
}

func (s *Server) createPersonality(c *gin.Context) {
	var req personalityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := s.store.CreatePersonality(c.Request.Context(), store.Personality{
		Name:             req.Name,
		Instructions:     req.Instructions,
		SpeakingStyle:    req.SpeakingStyle,
		KnowledgeDomains: req.KnowledgeDomains,
	})
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPersonalityResp(created))
}

func (s *Server) activePersonality(c *gin.Context) {
	p, ok, err := s.store.ActivePersonality(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"personality": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"personality": toPersonalityResp(p)})
}

func (s *Server) getPersonality(c *gin.Context) {
	p, err := s.store.Personality(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPersonalityResp(p))
}

func (s *Server) updatePersonality(c *gin.Context) {
	var req personalityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := s.store.UpdatePersonality(c.Request.Context(), c.Param("id"), store.Personality{
		Name:             req.Name,
		Instructions:     req.Instructions,
		SpeakingStyle:    req.SpeakingStyle,
		KnowledgeDomains: req.KnowledgeDomains,
	})
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPersonalityResp(updated))
}

func (s *Server) activatePersonality(c *gin.Context) {
	if err := s.store.ActivatePersonality(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activated"})
}
