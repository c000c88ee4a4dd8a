// Package router 提供 HTTP 路由注册
// 本文件定义频道与消息相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterChannelRoutes 注册频道与频道消息路由
// 创建与列出频道挂在 /nexus/:id/channels 下
func (rt *Router) RegisterChannelRoutes(rg *gin.RouterGroup) {
	channelGroup := rg.Group("/channels")
	{
		channelGroup.DELETE("/:id", rt.handlers.Channel.DeleteChannel)
		channelGroup.POST("/:id/messages", rt.handlers.Channel.PostMessage)
		channelGroup.GET("/:id/messages", rt.handlers.Channel.ListMessages)
	}

	messageGroup := rg.Group("/messages")
	{
		messageGroup.PATCH("/:id", rt.handlers.Channel.EditMessage)
		messageGroup.DELETE("/:id", rt.handlers.Channel.DeleteMessage)
	}
}
