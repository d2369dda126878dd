package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(cfg Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger, cfg.Metrics))
	router.Use(corsMiddleware(cfg.CORSOrigins))

	h := NewStockHandler(cfg.Service)
	router.GET("/companies", h.ListCompanies)
	router.GET("/data/:symbol", h.GetRecent)
	router.GET("/summary/:symbol", h.GetSummary)
	router.GET("/compare", h.Compare)
	router.GET("/health", h.Health)

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	return router
}
