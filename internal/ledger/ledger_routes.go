package ledger

import (
	"hrm-server/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, guards middleware.Guards) {
	guards = guards.WithDefaults()

	balances := r.Group("/leave-balances")
	balances.Use(guards.Auth)
	{
		balances.GET("/:employee_id", handler.GetBalance)
		balances.POST("/:employee_id/recompute", middleware.RoleMiddleware("hr", "admin"), handler.Recompute)
	}

	entries := r.Group("/leave-ledger")
	entries.Use(guards.Auth, guards.RateLimit)
	{
		entries.GET("/:employee_id", handler.ListEntries)

		admin := entries.Group("", middleware.RoleMiddleware("hr", "admin"), guards.Idempotency)
		admin.POST("", handler.PostEntry)
		admin.POST("/carry-forward", handler.CarryForward)
		admin.POST("/entries/:entry_id/reverse", handler.Reverse)
	}
}
