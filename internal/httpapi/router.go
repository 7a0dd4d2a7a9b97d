package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/middleware"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
)

type RouterConfig struct {
	CORSAllowOrigins []string
	// Adds otelgin spans; the tracer provider is installed elsewhere.
	Tracing     bool
	ServiceName string
}

func NewRouter(h *handlers.Handler, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	if len(cfg.CORSAllowOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSAllowOrigins))
	}

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	// chat
	api.POST("/chat", h.Chat)
	api.GET("/history/:session_id", h.History)
	// speech
	api.POST("/speech/transcribe", h.Transcribe)
	api.POST("/speech/synthesize", h.Synthesize)
	// upload
	api.POST("/upload", h.Upload)
	api.GET("/upload/status", h.UploadStatus)
	return r
}
