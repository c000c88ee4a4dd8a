// Package router 提供 HTTP 路由注册
// 本文件定义社区相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterNexusRoutes 注册社区、成员、邀请码路由
func (rt *Router) RegisterNexusRoutes(rg *gin.RouterGroup) {
	nexusGroup := rg.Group("/nexus")
	{
		nexusGroup.POST("", rt.handlers.Nexus.CreateNexus)
		nexusGroup.GET("", rt.handlers.Nexus.ListMyNexuses)
		nexusGroup.GET("/:id", rt.handlers.Nexus.GetNexus)
		nexusGroup.PATCH("/:id", rt.handlers.Nexus.UpdateNexus)

		// ===== 成员 =====
		nexusGroup.GET("/:id/members", rt.handlers.Nexus.ListMembers)
		nexusGroup.POST("/:id/members", rt.handlers.Nexus.AddMember)
		nexusGroup.DELETE("/:id/members/:userId", rt.handlers.Nexus.RemoveMember)

		// ===== 邀请码 =====
		nexusGroup.POST("/:id/invites", rt.handlers.Nexus.CreateInvite)
		nexusGroup.GET("/:id/invites", rt.handlers.Nexus.ListInvites)

		// ===== 频道 =====
		nexusGroup.POST("/:id/channels", rt.handlers.Channel.CreateChannel)
		nexusGroup.GET("/:id/channels", rt.handlers.Channel.ListChannels)
	}

	rg.POST("/invite/redeem", rt.handlers.Nexus.RedeemInvite) // 使用邀请码加入
}
