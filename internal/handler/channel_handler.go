// Package handler 提供 HTTP 请求处理器
// 本文件处理频道与频道消息相关的 API 请求
package handler

import (
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ChannelHandler 频道请求处理器
type ChannelHandler struct {
	channelSvc service.ChannelService
}

// NewChannelHandler 创建频道处理器实例
func NewChannelHandler(channelSvc service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelSvc: channelSvc}
}

// CreateChannel 在社区下创建频道，位置自动追加到分类末尾
// POST /nexus/:id/channels
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req request.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.CreateChannel(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListChannels GET /nexus/:id/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	data, err := h.channelSvc.ListChannels(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// DeleteChannel DELETE /channels/:id
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	if err := h.channelSvc.DeleteChannel(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// PostMessage 发送频道消息
// POST /channels/:id/messages
// 请求体: request.PostMessageRequest
func (h *ChannelHandler) PostMessage(c *gin.Context) {
	var req request.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.PostMessage(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListMessages 按 (created_at, seq) 升序返回 before_seq 之前的最近 limit 条
// GET /channels/:id/messages?before_seq=&limit=
func (h *ChannelHandler) ListMessages(c *gin.Context) {
	var req request.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.BeforeSeq, req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// EditMessage PATCH /messages/:id
func (h *ChannelHandler) EditMessage(c *gin.Context) {
	var req request.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.channelSvc.EditMessage(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// DeleteMessage DELETE /messages/:id
func (h *ChannelHandler) DeleteMessage(c *gin.Context) {
	if err := h.channelSvc.DeleteMessage(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
