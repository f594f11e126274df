package api

import (
	"github.com/gin-gonic/gin"

	"marketpulse/server/config"
	"marketpulse/server/internal/cache"
	"marketpulse/server/internal/database"
)

func SetupRoutes(router *gin.Engine, db *database.Database, store *cache.Store, cfg *config.Config) *Handler {
	handler := NewHandler(db, store, cfg, nil)

	api := router.Group("/api")
	{
		api.POST("/reports/recalculate", handler.Recalculate)
		api.GET("/reports/:entity_type/:entity_id", handler.GetReport)
		api.GET("/compare", handler.Compare)
		api.GET("/compare/history", handler.GetCompareHistory)
	}

	return handler
}
