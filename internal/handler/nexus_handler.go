// Package handler 提供 HTTP 请求处理器
// 本文件处理社区、成员与邀请码相关的 API 请求
package handler

import (
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// NexusHandler 社区请求处理器
type NexusHandler struct {
	nexusSvc service.NexusService
}

// NewNexusHandler 创建社区处理器实例
func NewNexusHandler(nexusSvc service.NexusService) *NexusHandler {
	return &NexusHandler{nexusSvc: nexusSvc}
}

// CreateNexus 创建社区，创建者成为 owner，并自动创建 general 频道
// POST /nexus
// 请求体: request.CreateNexusRequest
func (h *NexusHandler) CreateNexus(c *gin.Context) {
	var req request.CreateNexusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.nexusSvc.CreateNexus(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListMyNexuses GET /nexus
func (h *NexusHandler) ListMyNexuses(c *gin.Context) {
	data, err := h.nexusSvc.ListMyNexuses(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetNexus GET /nexus/:id
func (h *NexusHandler) GetNexus(c *gin.Context) {
	data, err := h.nexusSvc.GetNexus(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// UpdateNexus PATCH /nexus/:id
func (h *NexusHandler) UpdateNexus(c *gin.Context) {
	var req request.UpdateNexusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.nexusSvc.UpdateNexus(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListMembers GET /nexus/:id/members
func (h *NexusHandler) ListMembers(c *gin.Context) {
	data, err := h.nexusSvc.ListMembers(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// AddMember 管理员直接拉人入社区
// POST /nexus/:id/members
// 请求体: request.AddMemberRequest，role 为空时为 member
func (h *NexusHandler) AddMember(c *gin.Context) {
	var req request.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.nexusSvc.AddMember(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.UserId, req.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RemoveMember 踢出成员；userId 为自己时即退出社区
// DELETE /nexus/:id/members/:userId
func (h *NexusHandler) RemoveMember(c *gin.Context) {
	err := h.nexusSvc.RemoveMember(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// CreateInvite POST /nexus/:id/invites
func (h *NexusHandler) CreateInvite(c *gin.Context) {
	var req request.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.nexusSvc.CreateInvite(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListInvites GET /nexus/:id/invites
func (h *NexusHandler) ListInvites(c *gin.Context) {
	data, err := h.nexusSvc.ListInvites(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// RedeemInvite 使用邀请码加入社区
// POST /invite/redeem
// 响应: respond.RedeemInviteRespond
func (h *NexusHandler) RedeemInvite(c *gin.Context) {
	var req request.RedeemInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	member, err := h.nexusSvc.RedeemInvite(c.Request.Context(), req.Code, middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.RedeemInviteRespond{NexusId: member.NexusId, Role: member.Role})
}
