// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"nexus_chat_server/internal/handler"
	"nexus_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用；所有业务接口都需要认证
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		handler.HandleSuccess(c, "pong")
	})

	authed := r.Group("/api/v1")
	authed.Use(middleware.JWTAuth())
	{
		rt.RegisterProfileRoutes(authed) // 用户资料
		rt.RegisterFriendRoutes(authed)  // 好友关系
		rt.RegisterNexusRoutes(authed)   // 社区、成员、邀请码
		rt.RegisterChannelRoutes(authed) // 频道与频道消息
		rt.RegisterDMRoutes(authed)      // 私信
		rt.RegisterUploadRoutes(authed)  // 图片上传
	}

	// WebSocket 单独挂在根路径，Token 可放在查询参数里
	ws := r.Group("")
	ws.Use(middleware.JWTAuth())
	rt.RegisterWebSocketRoutes(ws)
}
