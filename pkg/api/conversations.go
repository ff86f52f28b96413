package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harunnryd/voxa/pkg/store"
)

type conversationResp struct {
	ID              string     `json:"id"`
	ThreadID        string     `json:"thread_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Tags            []string   `json:"tags"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds int        `json:"duration_seconds"`
	Archived        bool       `json:"archived"`
}

type messageResp struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

func toConversationResp(conv store.Conversation) conversationResp {
	tags := conv.Tags
	if tags == nil {
		tags = []string{}
	}
	return conversationResp{
		ID:              conv.ID,
		ThreadID:        conv.ThreadID,
		Title:           conv.Title,
		Description:     conv.Description,
		Tags:            tags,
		StartedAt:       conv.StartedAt,
		EndedAt:         conv.EndedAt,
		DurationSeconds: conv.DurationSeconds,
		Archived:        conv.Archived,
	}
}

func (s *Server) listConversations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	includeArchived := c.Query("include_archived") == "true"
	convs, err := s.store.RecentConversations(c.Request.Context(), limit, includeArchived)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]conversationResp, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationResp(conv))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (s *Server) searchConversations(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	convs, err := s.store.SearchConversations(c.Request.Context(), query, limit)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]conversationResp, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationResp(conv))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (s *Server) getConversation(c *gin.Context) {
	conv, err := s.store.Conversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toConversationResp(conv))
}

func (s *Server) listMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.Conversation(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	msgs, err := s.store.Messages(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]messageResp, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, messageResp{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			Role:           msg.Role,
			Content:        msg.Content,
			Timestamp:      msg.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type importMessageReq struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp"`
}

type importConversationReq struct {
	ThreadID  string             `json:"thread_id"`
	Title     string             `json:"title"`
	StartedAt *time.Time         `json:"started_at"`
	Messages  []importMessageReq `json:"messages"`
}

// importConversation ingests a conversation exported elsewhere,
// keeping its original timestamps.
func (s *Server) importConversation(c *gin.Context) {
	var req importConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = "imported_" + strconv.FormatInt(time.Now().Unix(), 10)
	}
	if req.Title == "" {
		req.Title = "Imported Conversation"
	}
	conv := store.Conversation{ThreadID: req.ThreadID, Title: req.Title}
	if req.StartedAt != nil {
		conv.StartedAt = *req.StartedAt
	}
	msgs := make([]store.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		if m.Role == "" {
			m.Role = "user"
		}
		msg := store.Message{Role: m.Role, Content: m.Content}
		if m.Timestamp != nil {
			msg.Timestamp = *m.Timestamp
		}
		msgs = append(msgs, msg)
	}
	created, err := s.store.ImportConversation(c.Request.Context(), conv, msgs)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"conversation":      toConversationResp(created),
		"imported_messages": len(msgs),
	})
}

func (s *Server) updateConversationTitle(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.UpdateConversationTitle(c.Request.Context(), c.Param("id"), req.Title); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) setConversationTags(c *gin.Context) {
	var req struct {
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.SetConversationTags(c.Request.Context(), c.Param("id"), req.Tags); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) archiveConversation(c *gin.Context) {
	if err := s.store.ArchiveConversation(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

func (s *Server) deleteConversation(c *gin.Context) {
	if err := s.store.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
