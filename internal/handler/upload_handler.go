// Package handler 提供 HTTP 请求处理器
// 本文件处理头像、横幅、社区图标的上传
package handler

import (
	"io"

	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/infrastructure/blob"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/service"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadHandler 上传请求处理器
// 图片存入资源存储后，把地址写回资料或社区
type UploadHandler struct {
	store      blob.Store
	profileSvc service.ProfileService
	nexusSvc   service.NexusService
}

// NewUploadHandler 创建上传处理器实例
func NewUploadHandler(store blob.Store, profileSvc service.ProfileService, nexusSvc service.NexusService) *UploadHandler {
	return &UploadHandler{store: store, profileSvc: profileSvc, nexusSvc: nexusSvc}
}

// UploadProfileAsset 上传自己的头像或横幅
// POST /upload/profile/:kind   (kind: avatar / banner)
// 表单字段: file
func (h *UploadHandler) UploadProfileAsset(c *gin.Context) {
	kind := c.Param("kind")
	if kind != blob.KindAvatar && kind != blob.KindBanner {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "kind 只能是 avatar 或 banner"))
		return
	}
	userId := middleware.UserID(c)
	url, ok := h.save(c, userId, kind)
	if !ok {
		return
	}
	var req request.UpdateProfileRequest
	if kind == blob.KindAvatar {
		req.AvatarUrl = &url
	} else {
		req.BannerUrl = &url
	}
	if _, err := h.profileSvc.UpdateProfile(c.Request.Context(), userId, req); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.UploadRespond{Url: url})
}

// UploadNexusAsset 上传社区图标或横幅
// 先校验成员身份再存储，写回时由 UpdateNexus 校验管理权限
// POST /upload/nexus/:id/:kind   (kind: icon / banner)
func (h *UploadHandler) UploadNexusAsset(c *gin.Context) {
	kind := c.Param("kind")
	if kind != blob.KindIcon && kind != blob.KindBanner {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "kind 只能是 icon 或 banner"))
		return
	}
	ctx, actor, nexusId := c.Request.Context(), middleware.UserID(c), c.Param("id")
	if _, err := h.nexusSvc.GetNexus(ctx, actor, nexusId); err != nil {
		HandleError(c, err)
		return
	}
	url, ok := h.save(c, nexusId, kind)
	if !ok {
		return
	}
	var req request.UpdateNexusRequest
	if kind == blob.KindIcon {
		req.IconUrl = &url
	} else {
		req.BannerUrl = &url
	}
	if _, err := h.nexusSvc.UpdateNexus(ctx, actor, nexusId, req); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.UploadRespond{Url: url})
}

// save 读取表单文件并存储，失败时已写回错误响应
func (h *UploadHandler) save(c *gin.Context, scopeId, kind string) (string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		HandleParamError(c, err)
		return "", false
	}
	if fileHeader.Size > constants.BLOB_MAX_SIZE {
		HandleError(c, errorx.Newf(errorx.CodeInvalidParam, "文件不能超过 %dMB", constants.BLOB_MAX_SIZE>>20))
		return "", false
	}
	file, err := fileHeader.Open()
	if err != nil {
		HandleError(c, errorx.Wrap(err, errorx.CodeInvalidParam, "读取上传文件失败"))
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.BLOB_MAX_SIZE+1))
	if err != nil {
		HandleError(c, errorx.Wrap(err, errorx.CodeInvalidParam, "读取上传文件失败"))
		return "", false
	}
	url, err := h.store.Store(c.Request.Context(), scopeId, kind, data)
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeServerBusy {
			zap.L().Error("保存上传文件失败", zap.String("scope_id", scopeId), zap.String("kind", kind), zap.Error(err))
		}
		HandleError(c, err)
		return "", false
	}
	return url, true
}
