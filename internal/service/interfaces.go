// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层与 WebSocket 网关调用
package service

import (
	"context"

	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/model"
)

// ProfileService 用户资料接口
type ProfileService interface {
	// CreateProfile 创建资料，id 为身份提供方的用户 ID，为空时生成新 ID
	CreateProfile(ctx context.Context, id, username, email string) (*model.Profile, error)
	// UpdateProfile 按字段更新资料
	UpdateProfile(ctx context.Context, id string, req request.UpdateProfileRequest) (*model.Profile, error)
	// GetProfile 查询资料（带缓存）
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// FindByHandle 按 username#tag 查找
	FindByHandle(ctx context.Context, username, tag string) (*model.Profile, error)
}

// FriendService 好友关系接口
type FriendService interface {
	SendRequest(ctx context.Context, from, to string) (*model.Friendship, error)
	AcceptRequest(ctx context.Context, actor, requestId string) (*model.Friendship, error)
	DeclineRequest(ctx context.Context, actor, requestId string) error
	Unfriend(ctx context.Context, a, b string) error
	Block(ctx context.Context, a, b string) (*model.Friendship, error)
	Unblock(ctx context.Context, a, b string) error
	ListFriends(ctx context.Context, userId string) ([]respond.FriendRespond, error)
	ListPending(ctx context.Context, userId string) ([]respond.FriendRespond, error)
	ListBlocked(ctx context.Context, userId string) ([]respond.FriendRespond, error)
}

// NexusService 社区接口
type NexusService interface {
	CreateNexus(ctx context.Context, owner string, req request.CreateNexusRequest) (*model.Nexus, error)
	// GetNexus 仅成员可见，网关订阅 nexus 主题时也用它鉴权
	GetNexus(ctx context.Context, actor, nexusId string) (*model.Nexus, error)
	ListMyNexuses(ctx context.Context, userId string) ([]model.Nexus, error)
	ListMembers(ctx context.Context, actor, nexusId string) ([]repository.MemberWithProfile, error)
	UpdateNexus(ctx context.Context, actor, nexusId string, req request.UpdateNexusRequest) (*model.Nexus, error)
	AddMember(ctx context.Context, actor, nexusId, userId, role string) (*model.NexusMember, error)
	RemoveMember(ctx context.Context, actor, nexusId, userId string) error
	CreateInvite(ctx context.Context, creator, nexusId string, req request.CreateInviteRequest) (*model.Invite, error)
	ListInvites(ctx context.Context, actor, nexusId string) ([]model.Invite, error)
	RedeemInvite(ctx context.Context, code, userId string) (*model.NexusMember, error)
}

// ChannelService 频道与频道消息接口
type ChannelService interface {
	// Access 检查用户能否访问频道
	Access(ctx context.Context, channelId, userId string) (*model.Channel, error)
	CreateChannel(ctx context.Context, actor, nexusId string, req request.CreateChannelRequest) (*model.Channel, error)
	ListChannels(ctx context.Context, actor, nexusId string) ([]model.Channel, error)
	DeleteChannel(ctx context.Context, actor, channelId string) error
	PostMessage(ctx context.Context, channelId, authorId string, req request.PostMessageRequest) (*model.Message, error)
	ListMessages(ctx context.Context, actor, channelId string, beforeSeq int64, limit int) ([]model.Message, error)
	EditMessage(ctx context.Context, id, editor, content string) (*model.Message, error)
	DeleteMessage(ctx context.Context, id, actor string) error
}

// DirectMessageService 私信接口
type DirectMessageService interface {
	SendDirectMessage(ctx context.Context, sender, receiver, content string) (*model.DirectMessage, error)
	ListConversation(ctx context.Context, a, b string, beforeSeq int64, limit int) ([]model.DirectMessage, error)
	EditDirectMessage(ctx context.Context, id, editor, content string) (*model.DirectMessage, error)
	ListConversations(ctx context.Context, userId string) ([]respond.ConversationRespond, error)
}
