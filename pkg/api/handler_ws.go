package api

import (
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// serveWS upgrades the connection and delegates to the ConnectionManager's
// read loop, which blocks until the client disconnects. client_id is
// accepted on the path for symmetry with the job/agent channel naming but
// is not otherwise interpreted — subscriptions are driven entirely by the
// client's own subscribe/unsubscribe messages once connected.
//
// Grounded on pkg/api/handler_ws.go's Accept call, with the origin check
// resolved against ServerConfig.AllowedWSOrigins instead of left
// unconditionally open.
func (s *Server) serveWS(c *gin.Context) {
	if s.conns == nil {
		c.JSON(503, failed("websocket transport not available"))
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.AllowedWSOrigins,
	})
	if err != nil {
		return
	}

	s.conns.HandleConnection(c.Request.Context(), conn)
}
