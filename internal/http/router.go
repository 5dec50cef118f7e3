package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/coachlens/coachlens-backend/internal/http/handlers"
	httpMW "github.com/coachlens/coachlens-backend/internal/http/middleware"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler   *httpH.HealthHandler
	SessionHandler  *httpH.SessionHandler
	FeedbackHandler *httpH.FeedbackHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.CreateSession)
			api.GET("/sessions/:id", cfg.SessionHandler.GetSession)
			api.POST("/sessions/:id/files", cfg.SessionHandler.UploadFiles)
		}

		if cfg.FeedbackHandler != nil {
			api.GET("/feedback/:id", cfg.FeedbackHandler.GetFeedback)
			api.GET("/sessions/:id/feedback", cfg.FeedbackHandler.ListSessionFeedback)
		}
	}

	if cfg.RealtimeHandler != nil {
		r.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
	}

	return r
}
