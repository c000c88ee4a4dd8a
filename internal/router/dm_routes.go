package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterDMRoutes 注册私信路由
func (rt *Router) RegisterDMRoutes(rg *gin.RouterGroup) {
	dmGroup := rg.Group("/dm")
	{
		dmGroup.GET("", rt.handlers.DM.ListConversations)
		dmGroup.PATCH("/messages/:id", rt.handlers.DM.EditDirectMessage)
		dmGroup.POST("/:userId", rt.handlers.DM.SendDirectMessage)
		dmGroup.GET("/:userId", rt.handlers.DM.ListConversation)
	}
}
