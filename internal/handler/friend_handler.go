// Package handler 提供 HTTP 请求处理器
// 本文件处理好友关系相关的 API 请求
package handler

import (
	"strings"

	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/service"
	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/validate"

	"github.com/gin-gonic/gin"
)

// FriendHandler 好友请求处理器
type FriendHandler struct {
	friendSvc  service.FriendService
	profileSvc service.ProfileService // 按 handle 解析目标用户
}

// NewFriendHandler 创建好友处理器实例
func NewFriendHandler(friendSvc service.FriendService, profileSvc service.ProfileService) *FriendHandler {
	return &FriendHandler{friendSvc: friendSvc, profileSvc: profileSvc}
}

// SendRequest 发送好友请求
// POST /friend/request
// 请求体: request.SendFriendRequest，user_id 与 handle 二选一
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req request.SendFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ctx := c.Request.Context()
	target := req.UserId
	if target == "" {
		if req.Handle == "" {
			HandleError(c, errorx.New(errorx.CodeInvalidParam, "user_id 与 handle 不能同时为空"))
			return
		}
		username, tag, err := validate.ParseHandle(strings.TrimSpace(req.Handle))
		if err != nil {
			HandleError(c, err)
			return
		}
		profile, err := h.profileSvc.FindByHandle(ctx, username, tag)
		if err != nil {
			HandleError(c, err)
			return
		}
		target = profile.Id
	}
	data, err := h.friendSvc.SendRequest(ctx, middleware.UserID(c), target)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// AcceptRequest POST /friend/accept
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	var req request.FriendRequestAction
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.friendSvc.AcceptRequest(c.Request.Context(), middleware.UserID(c), req.RequestId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// DeclineRequest 拒绝收到的请求或撤回自己发出的请求
// POST /friend/decline
func (h *FriendHandler) DeclineRequest(c *gin.Context) {
	var req request.FriendRequestAction
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.friendSvc.DeclineRequest(c.Request.Context(), middleware.UserID(c), req.RequestId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Unfriend POST /friend/remove
func (h *FriendHandler) Unfriend(c *gin.Context) {
	var req request.TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.friendSvc.Unfriend(c.Request.Context(), middleware.UserID(c), req.UserId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Block POST /friend/block
func (h *FriendHandler) Block(c *gin.Context) {
	var req request.TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.friendSvc.Block(c.Request.Context(), middleware.UserID(c), req.UserId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Unblock POST /friend/unblock
func (h *FriendHandler) Unblock(c *gin.Context) {
	var req request.TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.friendSvc.Unblock(c.Request.Context(), middleware.UserID(c), req.UserId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// ListFriends GET /friend/list
func (h *FriendHandler) ListFriends(c *gin.Context) {
	data, err := h.friendSvc.ListFriends(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListPending GET /friend/pending
func (h *FriendHandler) ListPending(c *gin.Context) {
	data, err := h.friendSvc.ListPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// ListBlocked GET /friend/blocked
func (h *FriendHandler) ListBlocked(c *gin.Context) {
	data, err := h.friendSvc.ListBlocked(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
