package api

import (
	"github.com/gin-gonic/gin"

	"github.com/harunnryd/voxa/pkg/session"
)

// handleWebsocket upgrades the request and hands the connection to a
// session, which owns it until disconnect.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket_upgrade_failed", "error", err.Error())
		return
	}
	sess := session.New(conn, s.sessionCfg, s.deps)
	s.logger.Info("session_accepted", "session_id", sess.ID(), "remote", c.ClientIP())
	sess.Run(c.Request.Context())
}
