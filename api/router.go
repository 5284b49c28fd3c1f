package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig 路由配置
type RouterConfig struct {
	AllowedOrigins []string
	Version        string
}

// NewRouter 注册全部路由：
//
//	POST /api/v1/predict        单条预测
//	POST /api/v1/predict/batch  批量预测
//	GET  /api/v1/schema         特征列顺序
//	GET  /api/v1/stats          特征监控统计
//	GET  /health                健康检查
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", HeaderRequestID}
	corsConfig.ExposeHeaders = []string{HeaderRequestID}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		if err := h.predictor.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"model":   h.predictor.Model().Name(),
				"error":   err.Error(),
				"version": cfg.Version,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"model":   h.predictor.Model().Name(),
			"version": cfg.Version,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/predict", h.Predict)
		apiV1.POST("/predict/batch", h.PredictBatch)
		apiV1.GET("/schema", h.Schema)
		apiV1.GET("/stats", h.Stats)
	}
	return router
}
