// Package api 組裝 HTTP 路由與中間件。
package api

import (
	"context"
	"net/http"
	"time"

	"meal-recommender/internal/api/handlers/catalog"
	"meal-recommender/internal/api/handlers/health"
	"meal-recommender/internal/api/handlers/recommend"
	"meal-recommender/internal/api/handlers/weather"
	"meal-recommender/internal/api/middleware"
	"meal-recommender/internal/core/food"
	coreRecommend "meal-recommender/internal/core/recommend"
	coreWeather "meal-recommender/internal/core/weather"
	"meal-recommender/internal/infrastructure/config"
	"meal-recommender/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 30 * time.Second
	// 請求體大小限制 (1MB)
	maxBodySize = 1 << 20
)

// Deps 路由需要的服務
type Deps struct {
	Recommender  *coreRecommend.Service
	Catalog      food.Catalog
	Users        food.UserStore
	DB           health.Pinger
	Weather      food.WeatherProvider
	Verifier     weather.KeyVerifier
	WeatherCache *coreWeather.CacheManager
	Dedup        *middleware.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件，Logger 需要 requestid
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 設置請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeoutDuration),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Error: common.ErrGatewayTimeout.Message,
				Code:  common.ErrCodeGatewayTimeout,
			})
		}
	})

	// 健康檢查路由
	var cacheStats health.StatsProvider
	if deps.WeatherCache != nil {
		cacheStats = deps.WeatherCache
	}
	healthHandler := health.NewHandler(cfg.App.Version, deps.DB, cacheStats)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	catalogHandler := catalog.NewHandler(deps.Catalog, cfg.App.Debug)
	router.GET("/food_image/:id", catalogHandler.HandleImage)

	// 寫入請求限制大小並去除重複提交
	writes := []gin.HandlerFunc{middleware.BodySizeLimit(maxBodySize)}
	if deps.Dedup != nil {
		writes = append(writes, deps.Dedup.Middleware())
	}

	// API 路由組
	api := router.Group("/api/v1")
	{
		recommendHandler := recommend.NewHandler(deps.Recommender, deps.Users, cfg.Recommend, cfg.App.Debug)
		api.GET("/recommend", recommendHandler.HandleRecommend)
		api.GET("/recommend/meal", recommendHandler.HandleMeal)
		api.DELETE("/history", recommendHandler.HandleResetAllHistory)
		api.GET("/history/:user_id", recommendHandler.HandleHistory)
		api.DELETE("/history/:user_id", recommendHandler.HandleResetHistory)
		api.POST("/users", append(writes, recommendHandler.HandleSaveUser)...)

		weatherHandler := weather.NewHandler(deps.Weather, deps.Verifier, cfg.Recommend.DefaultCity, coreWeather.Lookup(cfg.Weather.DefaultCondition))
		api.GET("/weather/verify", weatherHandler.HandleVerifyKey)

		debugGroup := api.Group("/debug")
		{
			debugGroup.GET("/foods", catalogHandler.HandleListFoods)
			debugGroup.GET("/weather", weatherHandler.HandleDebugWeather)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("weather_cache", deps.WeatherCache != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
