// Package https_server 创建 gin 引擎并装配中间件与路由
package https_server

import (
	"chat_fanout_server/internal/config"
	"chat_fanout_server/internal/handler"
	"chat_fanout_server/internal/infrastructure/logger"
	"chat_fanout_server/internal/infrastructure/middleware"
	"chat_fanout_server/internal/router"
	"chat_fanout_server/pkg/util/jwt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewEngine 中间件顺序：日志、恢复、指标、安全头、CORS，业务路由再挂鉴权与限流
func NewEngine(cfg *config.Config, handlers *handler.Handlers, signer *jwt.Signer) *gin.Engine {
	if cfg.MainConfig.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))
	engine.Use(middleware.Metrics())
	engine.Use(middleware.Secure(cfg.MainConfig))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	limiter := middleware.NewRateLimiter(cfg.RateLimitConfig)
	rt := router.NewRouter(handlers, middleware.JWTAuth(signer), limiter.Middleware())
	rt.RegisterRoutes(engine)
	return engine
}
