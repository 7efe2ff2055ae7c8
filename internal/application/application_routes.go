package application

import (
	"hrm-server/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, guards middleware.Guards) {
	guards = guards.WithDefaults()

	apps := r.Group("/applications")
	apps.Use(guards.Auth, guards.RateLimit)
	{
		apps.GET("", handler.List)
		apps.GET("/mine/active", handler.GetActiveForApplicant)
		apps.GET("/mine/pending-approvals", handler.GetPendingForApprover)
		apps.GET("/:id", handler.GetByID)

		writes := apps.Group("", guards.Idempotency)
		writes.POST("", handler.Create)
		writes.POST("/:id/actions", handler.AdvanceStage)
		writes.POST("/:id/stages/:index/comments", handler.AddComment)
		writes.POST("/:id/cancel", handler.Cancel)
	}
}
