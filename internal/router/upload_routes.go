package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterUploadRoutes 注册图片上传路由
func (rt *Router) RegisterUploadRoutes(rg *gin.RouterGroup) {
	uploadGroup := rg.Group("/upload")
	{
		uploadGroup.POST("/profile/:kind", rt.handlers.Upload.UploadProfileAsset) // avatar / banner
		uploadGroup.POST("/nexus/:id/:kind", rt.handlers.Upload.UploadNexusAsset) // icon / banner
	}
}
