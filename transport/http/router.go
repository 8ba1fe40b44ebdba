package http

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/keygate/internal/logging"
	"github.com/layer-3/keygate/service"
	"github.com/layer-3/keygate/transport/ws"
)

// Options configure the router
type Options struct {
	WS     ws.Settings
	Logger logging.Logger
	// BaseContext is cancelled on shutdown; open websockets close with it
	BaseContext context.Context
	// Connections, when set, counts websocket handlers still running
	Connections *sync.WaitGroup
}

// SetupRouter sets up the Gin router
func SetupRouter(auth *service.Authenticator, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(opts.Logger))

	handlers := NewAuthHandlers(auth, opts)

	router.GET("/healthz", handlers.Healthz)
	router.GET("/api/v1/connection", handlers.Connection)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(auth, opts.Logger))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
