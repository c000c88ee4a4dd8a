// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"context"
	"errors"
	"time"

	"nexus_chat_server/internal/model"
	"nexus_chat_server/pkg/errorx"

	"gorm.io/gorm"
)

// ==================== Repository 接口定义 ====================

// ProfileRepository 用户资料数据访问接口
type ProfileRepository interface {
	// FindById 根据 ID 查找资料
	FindById(id string) (*model.Profile, error)
	// FindByIdForUpdate 查找并锁定资料行（事务内使用）
	FindByIdForUpdate(id string) (*model.Profile, error)
	// FindByIds 批量查找
	FindByIds(ids []string) ([]model.Profile, error)
	// FindByHandle 根据 username#tag 查找
	FindByHandle(username, tag string) (*model.Profile, error)
	// Create 创建资料，(username, tag) 冲突返回 CodeConflict
	Create(profile *model.Profile) error
	// Update 按字段更新
	Update(id string, updates map[string]any) error
}

// FriendshipRepository 好友边数据访问接口
type FriendshipRepository interface {
	// FindById 根据 ID 查找
	FindById(id string) (*model.Friendship, error)
	// FindBetween 查找两人之间任意方向的所有边
	FindBetween(a, b string) ([]model.Friendship, error)
	// FindOutgoing 查找 user_id = userId 且状态为 status 的边
	FindOutgoing(userId, status string) ([]model.Friendship, error)
	// FindIncoming 查找 friend_id = userId 且状态为 status 的边
	FindIncoming(userId, status string) ([]model.Friendship, error)
	// Create 创建一条有向边
	Create(f *model.Friendship) error
	// TransitionStatus 仅当当前状态为 from 时改为 to，返回影响行数
	TransitionStatus(id, from, to string) (int64, error)
	// DeleteByIds 批量删除
	DeleteByIds(ids []string) error
}

// NexusRepository 社区数据访问接口
type NexusRepository interface {
	FindById(id string) (*model.Nexus, error)
	// FindByMember 查找用户加入的所有社区
	FindByMember(userId string) ([]model.Nexus, error)
	Create(nexus *model.Nexus) error
	Update(id string, updates map[string]any) error
}

// MemberWithProfile 社区成员（含用户资料）
type MemberWithProfile struct {
	model.NexusMember
	Username  string `json:"username"`
	Tag       string `json:"tag"`
	AvatarUrl string `json:"avatar_url"`
	Status    string `json:"status"`
}

// NexusMemberRepository 社区成员数据访问接口
type NexusMemberRepository interface {
	// Find 查找成员关系，不存在返回 CodeNotFound
	Find(nexusId, userId string) (*model.NexusMember, error)
	// FindWithProfiles 查找社区全部成员（含资料），按加入时间排序
	FindWithProfiles(nexusId string) ([]MemberWithProfile, error)
	// Create 添加成员，重复返回 CodeConflict
	Create(member *model.NexusMember) error
	// Delete 删除成员关系，返回影响行数
	Delete(nexusId, userId string) (int64, error)
}

// ChannelRepository 频道数据访问接口
type ChannelRepository interface {
	FindById(id string) (*model.Channel, error)
	// FindByNexus 按分类、位置排序
	FindByNexus(nexusId string) ([]model.Channel, error)
	// MaxPosition 查询分类内最大位置，分类为空时 ok=false
	MaxPosition(nexusId, category string) (pos int, ok bool, err error)
	// Create 创建频道，位置冲突返回 CodeConflict
	Create(channel *model.Channel) error
	DeleteById(id string) error
}

// MessageRepository 频道消息数据访问接口
type MessageRepository interface {
	FindById(id string) (*model.Message, error)
	// FindByChannel 正序返回；limit > 0 时返回 seq < beforeSeq 的最新 limit 条
	FindByChannel(channelId string, beforeSeq int64, limit int) ([]model.Message, error)
	// FindReplies 查找回复指定消息的消息
	FindReplies(messageId string) ([]model.Message, error)
	Create(message *model.Message) error
	// UpdateContent 修改内容并标记为已编辑，seq 与 created_at 不变
	UpdateContent(id, content string) error
	// ClearReplyTo 清空指向 messageId 的回复引用
	ClearReplyTo(messageId string) error
	DeleteById(id string) error
	DeleteByChannel(channelId string) error
}

// DirectMessageRepository 私信数据访问接口
type DirectMessageRepository interface {
	FindById(id string) (*model.DirectMessage, error)
	// FindByPair 规则同 MessageRepository.FindByChannel
	FindByPair(pairKey string, beforeSeq int64, limit int) ([]model.DirectMessage, error)
	Create(dm *model.DirectMessage) error
	UpdateContent(id, content string) error
}

// InviteRepository 邀请码数据访问接口
type InviteRepository interface {
	FindByCode(code string) (*model.Invite, error)
	FindByNexus(nexusId string) ([]model.Invite, error)
	// Create 创建邀请，邀请码冲突返回 CodeConflict
	Create(invite *model.Invite) error
	// IncrementUses 带条件地 uses+1：未达上限且未过期，返回影响行数
	IncrementUses(id string, now time.Time) (int64, error)
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db            *gorm.DB // GORM 数据库实例
	Profile       ProfileRepository
	Friendship    FriendshipRepository
	Nexus         NexusRepository
	NexusMember   NexusMemberRepository
	Channel       ChannelRepository
	Message       MessageRepository
	DirectMessage DirectMessageRepository
	Invite        InviteRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		Profile:       NewProfileRepository(db),
		Friendship:    NewFriendshipRepository(db),
		Nexus:         NewNexusRepository(db),
		NexusMember:   NewNexusMemberRepository(db),
		Channel:       NewChannelRepository(db),
		Message:       NewMessageRepository(db),
		DirectMessage: NewDirectMessageRepository(db),
		Invite:        NewInviteRepository(db),
	}
}

// WithContext 返回绑定了 ctx 的 Repositories，ctx 取消时查询随之中断
func (r *Repositories) WithContext(ctx context.Context) *Repositories {
	return NewRepositories(r.db.WithContext(ctx))
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
// fn 内只能使用 txRepos，否则 sqlite 单连接下会互相等待
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 使用事务 db 创建新的 Repositories 实例
		return fn(NewRepositories(tx))
	})
	var codeErr *errorx.CodeError
	if err != nil && !errors.As(err, &codeErr) {
		return wrapDBError(err, "事务执行失败")
	}
	return err
}

// DB 返回底层 GORM 实例
func (r *Repositories) DB() *gorm.DB {
	return r.db
}
