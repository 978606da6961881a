package routes

import (
	"pizza-api/handlers"
	"pizza-api/metrics"
	"pizza-api/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every endpoint. authLimiter guards the /api/auth group.
func SetupRoutes(r *gin.Engine, h *handlers.Handler, authn middleware.Authenticator, authLimiter gin.HandlerFunc, reg *metrics.Registry) {
	r.GET("/health", handlers.Health)
	r.GET("/", handlers.Welcome)
	r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))

	requireAuth := middleware.AuthRequired(authn)
	optionalAuth := middleware.OptionalAuth(authn)

	api := r.Group("/api")
	api.GET("/docs/policy", handlers.GetPolicyInfo)

	// ── Auth ───────────────────────────────────────────────────────
	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter)
	{
		authGroup.POST("", h.Register)
		authGroup.PUT("", h.Login)
		authGroup.DELETE("", h.Logout)
		authGroup.GET("/me", requireAuth, h.Me)
		authGroup.PUT("/:id", requireAuth, h.UpdateUser)
		authGroup.DELETE("/:id", requireAuth, h.DeleteUser)
	}

	// ── Franchises & stores ────────────────────────────────────────
	franchise := api.Group("/franchise")
	{
		franchise.GET("", optionalAuth, h.ListFranchises)
		franchise.GET("/:userId", requireAuth, h.ListUserFranchises)
		franchise.POST("", requireAuth, h.CreateFranchise)
		franchise.DELETE("/:id", requireAuth, h.DeleteFranchise)
		franchise.POST("/:id/store", requireAuth, h.CreateStore)
		franchise.DELETE("/:id/store/:storeId", requireAuth, h.DeleteStore)
	}

	// ── Menu & orders ──────────────────────────────────────────────
	order := api.Group("/order")
	{
		order.GET("/menu", h.GetMenu)
		order.PUT("/menu", requireAuth, h.AddMenuItem)
		order.POST("", requireAuth, h.CreateOrder)
		order.GET("", requireAuth, h.GetOrders)
	}
}
