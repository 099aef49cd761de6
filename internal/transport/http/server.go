package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aptos-labs/hong-bao/internal/auth"
	"github.com/aptos-labs/hong-bao/internal/chat"
	"github.com/aptos-labs/hong-bao/internal/config"
)

// ErrorResponse is the JSON body of every non-websocket error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// NewServer builds the HTTP server: health at the root, the chat websocket
// endpoint, and prometheus metrics.
func NewServer(registry *chat.Registry, gate *auth.Gate, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		MetricsMiddleware(),
	)

	router.GET("/", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ws := NewWSHandler(registry, gate, logger)
	router.GET("/chat", func(c *gin.Context) {
		ws.ServeHTTP(c.Writer, c.Request)
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Message: "Not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(stdhttp.StatusMethodNotAllowed, ErrorResponse{Message: "Method not allowed"})
	})

	return &stdhttp.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "Healthy! Try connecting to a chat room at the /chat endpoint!")
}
