package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prepdeck/testprep-service/internal/services"
	"github.com/prepdeck/testprep-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
}

func NewHandlerManager(
	sessions services.SessionService,
	responses services.ResponseService,
	exports services.ResultExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessions, responses, exports, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", hm.sessionHandler.List)
			sessions.POST("/start", hm.sessionHandler.Start)
			sessions.GET("/test/:test_id", hm.sessionHandler.Get)
			sessions.PUT("/:id/progress", hm.sessionHandler.Advance)
			sessions.POST("/:id/responses", hm.sessionHandler.RecordResponse)
			sessions.POST("/:id/complete", hm.sessionHandler.Complete)
			sessions.POST("/:id/abandon", hm.sessionHandler.Abandon)
			sessions.GET("/:id/results/export", hm.sessionHandler.ExportResults)
		}
	}
}

// HealthCheck reports service liveness
func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "healthy",
		"service": "testprep-service",
	})
}
