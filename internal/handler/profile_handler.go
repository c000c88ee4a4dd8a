// Package handler 提供 HTTP 请求处理器
// 本文件处理用户资料相关的 API 请求
package handler

import (
	"strings"

	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/service"
	"nexus_chat_server/pkg/util/validate"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 用户资料请求处理器
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建资料处理器实例
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// CreateProfile 首次登录后创建资料
// POST /profile
// 请求体: request.CreateProfileRequest
// 响应: model.Profile（含分配的 tag）
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	var req request.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.profileSvc.CreateProfile(c.Request.Context(), middleware.UserID(c), req.Username, req.Email)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetMyProfile GET /profile/me
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	data, err := h.profileSvc.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetProfile GET /profile/:id
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	data, err := h.profileSvc.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UpdateProfile 更新自己的资料
// PATCH /profile/me
// 请求体: request.UpdateProfileRequest，未传的字段保持不变
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.profileSvc.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// LookupProfile 按 username#tag 查找用户
// GET /profile/lookup?handle=alice%230001
func (h *ProfileHandler) LookupProfile(c *gin.Context) {
	username, tag, err := validate.ParseHandle(strings.TrimSpace(c.Query("handle")))
	if err != nil {
		HandleError(c, err)
		return
	}
	data, err := h.profileSvc.FindByHandle(c.Request.Context(), username, tag)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
