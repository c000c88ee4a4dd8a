// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
// 通过构造函数注入 Service 依赖
package handler

import (
	"nexus_chat_server/internal/gateway/websocket"
	"nexus_chat_server/internal/infrastructure/blob"
	"nexus_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Profile *ProfileHandler
	Friend  *FriendHandler
	Nexus   *NexusHandler
	Channel *ChannelHandler
	DM      *DMHandler
	Upload  *UploadHandler
	Ws      *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, ws *websocket.Manager, store blob.Store) *Handlers {
	return &Handlers{
		Profile: NewProfileHandler(svc.Profile),
		Friend:  NewFriendHandler(svc.Friend, svc.Profile),
		Nexus:   NewNexusHandler(svc.Nexus),
		Channel: NewChannelHandler(svc.Channel),
		DM:      NewDMHandler(svc.DM),
		Upload:  NewUploadHandler(store, svc.Profile, svc.Nexus),
		Ws:      NewWsHandler(ws),
	}
}
