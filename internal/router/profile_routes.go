package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterProfileRoutes 注册用户资料路由
func (rt *Router) RegisterProfileRoutes(rg *gin.RouterGroup) {
	profileGroup := rg.Group("/profile")
	{
		profileGroup.POST("", rt.handlers.Profile.CreateProfile)       // 首次登录创建资料
		profileGroup.GET("/me", rt.handlers.Profile.GetMyProfile)      // 我的资料
		profileGroup.PATCH("/me", rt.handlers.Profile.UpdateProfile)   // 更新资料
		profileGroup.GET("/lookup", rt.handlers.Profile.LookupProfile) // 按 username#tag 查找
		profileGroup.GET("/:id", rt.handlers.Profile.GetProfile)       // 他人资料
	}
}
