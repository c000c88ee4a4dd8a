// Package handler 提供 HTTP 请求处理器
// 本文件处理私信相关的 API 请求
package handler

import (
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// DMHandler 私信请求处理器
type DMHandler struct {
	dmSvc service.DirectMessageService
}

// NewDMHandler 创建私信处理器实例
func NewDMHandler(dmSvc service.DirectMessageService) *DMHandler {
	return &DMHandler{dmSvc: dmSvc}
}

// ListConversations 当前用户的私信会话（好友列表）
// GET /dm
func (h *DMHandler) ListConversations(c *gin.Context) {
	data, err := h.dmSvc.ListConversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// SendDirectMessage POST /dm/:userId
func (h *DMHandler) SendDirectMessage(c *gin.Context) {
	var req request.SendDirectMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.dmSvc.SendDirectMessage(c.Request.Context(), middleware.UserID(c), c.Param("userId"), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListConversation GET /dm/:userId?before_seq=&limit=
func (h *DMHandler) ListConversation(c *gin.Context) {
	var req request.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.dmSvc.ListConversation(c.Request.Context(), middleware.UserID(c), c.Param("userId"), req.BeforeSeq, req.Limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// EditDirectMessage PATCH /dm/messages/:id
func (h *DMHandler) EditDirectMessage(c *gin.Context) {
	var req request.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.dmSvc.EditDirectMessage(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
