// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、静态资源和路由
package https_server

import (
	"nexus_chat_server/internal/config"
	"nexus_chat_server/internal/handler"
	"nexus_chat_server/internal/infrastructure/logger"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 初始化 HTTP/HTTPS 服务器并返回 Gin 引擎实例
// 配置顺序：
//  1. 创建 Gin 引擎（空白，不含默认中间件）
//  2. 注册日志、恢复、CORS、TLS 跳转、限流中间件
//  3. 本地存储模式下映射静态资源目录
//  4. 注册业务路由
func Init(conf *config.Config, handlers *handler.Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	if conf.MainConfig.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 由 Nginx 终止 TLS 时关闭 forceTLS
	if conf.MainConfig.ForceTLS {
		engine.Use(middleware.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}
	if limiter != nil {
		engine.Use(middleware.RateLimit(limiter))
	}

	// /static -> 本地上传的头像、横幅、图标
	if conf.BlobConfig.Driver == "" || conf.BlobConfig.Driver == "local" {
		engine.Static(conf.BlobConfig.PublicBaseURL, conf.BlobConfig.LocalPath)
	}

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)

	return engine
}
