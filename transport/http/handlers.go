package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/layer-3/keygate/core"
	"github.com/layer-3/keygate/internal/logging"
	"github.com/layer-3/keygate/service"
	"github.com/layer-3/keygate/transport/ws"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	auth     *service.Authenticator
	upgrader websocket.Upgrader
	settings ws.Settings
	logger   logging.Logger
	base     context.Context
	live     *sync.WaitGroup
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(auth *service.Authenticator, opts Options) *AuthHandlers {
	h := &AuthHandlers{
		auth:     auth,
		settings: opts.WS,
		logger:   opts.Logger,
		base:     opts.BaseContext,
		live:     opts.Connections,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Authentication does not rely on cookies, so any origin may connect
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if h.logger == nil {
		h.logger = logging.Nop()
	}
	if h.base == nil {
		h.base = context.Background()
	}
	return h
}

// Connection upgrades the request and runs the authentication protocol on it
func (h *AuthHandlers) Connection(c *gin.Context) {
	// Hijacked connections are invisible to http.Server.Shutdown
	if h.live != nil {
		h.live.Add(1)
		defer h.live.Done()
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response
		h.logger.Debug(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	ws.Serve(ctx, conn, h.auth, h.settings, h.logger)
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         session.UserID,
		"connection": session.ID,
	})
}

// Authorize checks if a user is authorized
func (h *AuthHandlers) Authorize(c *gin.Context) {
	// The auth middleware has already validated the token
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"userID":     session.UserID,
	})
}

// Healthz reports that the server is up
func (h *AuthHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func sessionFrom(c *gin.Context) (*core.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*core.Session)
	return session, ok
}
