// Package router 提供 HTTP 路由注册
// 本文件定义好友相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterFriendRoutes 注册好友相关路由
func (rt *Router) RegisterFriendRoutes(rg *gin.RouterGroup) {
	friendGroup := rg.Group("/friend")
	{
		// ===== 查询 =====
		friendGroup.GET("/list", rt.handlers.Friend.ListFriends)    // 好友列表
		friendGroup.GET("/pending", rt.handlers.Friend.ListPending) // 收到与发出的待处理请求
		friendGroup.GET("/blocked", rt.handlers.Friend.ListBlocked) // 黑名单

		// ===== 好友申请 =====
		friendGroup.POST("/request", rt.handlers.Friend.SendRequest)    // 发送请求
		friendGroup.POST("/accept", rt.handlers.Friend.AcceptRequest)   // 接受
		friendGroup.POST("/decline", rt.handlers.Friend.DeclineRequest) // 拒绝或撤回

		// ===== 好友关系管理 =====
		friendGroup.POST("/remove", rt.handlers.Friend.Unfriend) // 删除好友
		friendGroup.POST("/block", rt.handlers.Friend.Block)     // 拉黑
		friendGroup.POST("/unblock", rt.handlers.Friend.Unblock) // 取消拉黑
	}
}
