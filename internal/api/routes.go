package api

import (
	"github.com/gin-gonic/gin"

	"github.com/irfndi/predictarena-go/internal/api/handlers"
	"github.com/irfndi/predictarena-go/internal/middleware"
)

// Dependencies are the handlers and guards the router is built from.
type Dependencies struct {
	Contests *handlers.ContestHandler
	Health   *handlers.HealthHandler
	Auth     *middleware.AuthMiddleware
	Admin    *middleware.AdminMiddleware
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", deps.Health.HealthCheck)
	router.GET("/live", deps.Health.LivenessCheck)

	v1 := router.Group("/api/v1")
	{
		contests := v1.Group("/contests")
		{
			contests.GET("/current", deps.Contests.GetCurrentContest)
			contests.GET("/:id/leaderboard", deps.Contests.GetLeaderboard)
			contests.GET("/:id/leaderboard/me", deps.Auth.RequireAuth(), deps.Contests.GetMyLeaderboardEntry)
			contests.GET("/:id/predictions/me", deps.Auth.RequireAuth(), deps.Contests.GetMyPredictions)
			contests.GET("/:id/stocks/:stockId/house-prediction", deps.Contests.GetHousePrediction)
			contests.GET("/:id/stocks/:stockId/stats", deps.Contests.GetStockStats)
		}

		stocks := v1.Group("/stocks")
		{
			stocks.GET("/featured", deps.Contests.GetFeaturedStocks)
			stocks.GET("/:symbol/history", deps.Contests.GetStockHistory)
		}

		v1.POST("/predictions", deps.Auth.RequireAuth(), deps.Contests.SubmitPrediction)

		admin := v1.Group("/admin", deps.Admin.RequireAdminAuth())
		{
			admin.POST("/contests/:id/resolve", deps.Contests.ResolveContest)
			admin.POST("/contests/:id/house-predictions", deps.Contests.GenerateHousePredictions)
		}
	}
}
