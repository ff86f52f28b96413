// Package api exposes the REST and websocket surface of the backend.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/voxa/pkg/embed"
	"github.com/harunnryd/voxa/pkg/session"
	"github.com/harunnryd/voxa/pkg/store"
)

type Server struct {
	addr       string
	store      store.Store
	sessionCfg session.Config
	deps       session.Deps
	pipeline   *embed.Pipeline
	logger     *slog.Logger
	engine     *gin.Engine
	upgrader   websocket.Upgrader
}

// NewServer builds the HTTP surface. pipeline may be nil, in which
// case uploaded reports skip embedding and complete immediately.
func NewServer(addr string, st store.Store, sessionCfg session.Config, deps session.Deps, pipeline *embed.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:       addr,
		store:      st,
		sessionCfg: sessionCfg,
		deps:       deps,
		pipeline:   pipeline,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/ws", s.handleWebsocket)

	api := s.engine.Group("/api")
	{
		api.GET("/conversations", s.listConversations)
		api.GET("/conversations/search", s.searchConversations)
		api.GET("/conversations/:id", s.getConversation)
		api.GET("/conversations/:id/messages", s.listMessages)
		api.PUT("/conversations/:id/title", s.updateConversationTitle)
		api.PUT("/conversations/:id/tags", s.setConversationTags)
		api.POST("/conversations/:id/archive", s.archiveConversation)
		api.DELETE("/conversations/:id", s.deleteConversation)
		api.POST("/conversations/import", s.importConversation)

		api.GET("/personalities", s.listPersonalities)
		api.POST("/personalities", s.createPersonality)
		api.GET("/personalities/active", s.activePersonality)
		api.GET("/personalities/:id", s.getPersonality)
		api.PUT("/personalities/:id", s.updatePersonality)
		api.POST("/personalities/:id/activate", s.activatePersonality)

		api.GET("/reports", s.listReports)
		api.POST("/reports", s.uploadReport)
		api.GET("/reports/:id", s.getReport)
		api.GET("/reports/:id/chunks", s.listReportChunks)
		api.DELETE("/reports/:id", s.deleteReport)

		api.GET("/settings", s.getSettings)
		api.PUT("/settings/reference_frequency", s.setReferenceFrequency)
		api.PUT("/settings/max_context_conversations", s.setMaxContextConversations)
	}
}

// Handler exposes the routing tree for in-process serving.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains with a short grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http_server_started", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "voxa"})
}

// storeError maps persistence failures onto HTTP statuses.
func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.logger.Error("store_request_failed", "path", c.FullPath(), "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
