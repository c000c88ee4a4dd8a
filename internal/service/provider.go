// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"nexus_chat_server/internal/dao/database/repository"
	myredis "nexus_chat_server/internal/dao/redis"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/internal/service/channel"
	"nexus_chat_server/internal/service/dm"
	"nexus_chat_server/internal/service/identity"
	"nexus_chat_server/internal/service/nexus"
	"nexus_chat_server/internal/service/social"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层与网关通过此结构访问各个 Service
type Services struct {
	Profile  ProfileService
	Friend   FriendService
	Nexus    NexusService
	Channel  ChannelService
	DM       DirectMessageService
	Notifier *bus.Notifier // 网关订阅变更事件
}

// NewServices 创建并注入所有 Service 实例
// cache 可为 nil，此时资料查询直接读库
func NewServices(repos *repository.Repositories, cache myredis.AsyncCacheService, notifier *bus.Notifier, policy dm.Policy) *Services {
	return &Services{
		Profile:  identity.NewService(repos, cache, notifier),
		Friend:   social.NewService(repos, notifier),
		Nexus:    nexus.NewService(repos, notifier),
		Channel:  channel.NewService(repos, notifier),
		DM:       dm.NewService(repos, notifier, policy),
		Notifier: notifier,
	}
}

// Svc 全局 Services 实例
var Svc *Services

// InitServices 初始化全局 Services 实例
// 应在 main.go 中调用，在 Repository 与总线初始化之后
func InitServices(repos *repository.Repositories, cache myredis.AsyncCacheService, notifier *bus.Notifier, policy dm.Policy) {
	Svc = NewServices(repos, cache, notifier, policy)
}
