// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接升级
package handler

import (
	"nexus_chat_server/internal/gateway/websocket"
	"nexus_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WsHandler WebSocket 请求处理器
type WsHandler struct {
	manager *websocket.Manager
}

// NewWsHandler 创建 WebSocket 处理器实例
func NewWsHandler(manager *websocket.Manager) *WsHandler {
	return &WsHandler{manager: manager}
}

// Connect 升级为 WebSocket，之后客户端通过 subscribe/unsubscribe 帧订阅主题
// GET /ws?token=xxx
func (h *WsHandler) Connect(c *gin.Context) {
	userId := middleware.UserID(c)
	if err := h.manager.Serve(c.Writer, c.Request, userId); err != nil {
		// Upgrade 失败时 gorilla 已写回 HTTP 错误
		zap.L().Warn("ws 升级失败", zap.String("user_id", userId), zap.Error(err))
	}
}
