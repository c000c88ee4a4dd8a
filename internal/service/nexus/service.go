// Package nexus 社区注册表
// 管理社区、成员关系与邀请码；创建社区时在同一事务内写入 owner 成员与默认频道
package nexus

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/random"
	"nexus_chat_server/pkg/util/validate"
)

// Service 社区业务逻辑实现
type Service struct {
	repos    *repository.Repositories
	notifier *bus.Notifier
	newCode  func() string
	now      func() time.Time
}

// NewService 构造函数
func NewService(repos *repository.Repositories, notifier *bus.Notifier) *Service {
	return &Service{
		repos:    repos,
		notifier: notifier,
		newCode:  func() string { return random.GetRandomString(constants.INVITE_CODE_LENGTH) },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithCodeGenerator 替换邀请码生成器
func (s *Service) WithCodeGenerator(gen func() string) *Service {
	s.newCode = gen
	return s
}

func nexusKey(id string) string {
	return "nexus:" + id
}

func memberKey(nexusId, userId string) string {
	return "member:" + nexusId + ":" + userId
}

func inviteKey(id string) string {
	return "invite:" + id
}

func nexusEvent(kind bus.Kind, n *model.Nexus) bus.Event {
	return bus.NewEvent(kind, bus.EntityNexus, n.Id, n, bus.NexusTopic(n.Id))
}

func memberEvent(kind bus.Kind, m *model.NexusMember) bus.Event {
	return bus.NewEvent(kind, bus.EntityNexusMember, m.Id, m, bus.NexusTopic(m.NexusId), bus.UserTopic(m.UserId))
}

func inviteEvent(kind bus.Kind, inv *model.Invite) bus.Event {
	return bus.NewEvent(kind, bus.EntityInvite, inv.Id, inv, bus.NexusTopic(inv.NexusId))
}

// ChannelEvent 频道事件，channel 包复用同一主题规则
func ChannelEvent(kind bus.Kind, c *model.Channel) bus.Event {
	return bus.NewEvent(kind, bus.EntityChannel, c.Id, c, bus.NexusTopic(c.NexusId), bus.ChannelTopic(c.Id))
}

// busy 业务错误原样返回，存储层故障记录日志后统一为 ServerBusy
func busy(err error, msg string, fields ...zap.Field) error {
	switch errorx.GetCode(err) {
	case errorx.CodeDBError, errorx.CodeServerBusy, errorx.CodeCacheError:
		zap.L().Error(msg, append(fields, zap.Error(err))...)
		return errorx.ErrServerBusy
	}
	return err
}

// Membership 查询用户在社区中的成员关系，非成员返回 Forbidden
func Membership(repos *repository.Repositories, nexusId, userId string) (*model.NexusMember, error) {
	m, err := repos.NexusMember.Find(nexusId, userId)
	if err != nil {
		if !errorx.IsNotFound(err) {
			return nil, err
		}
		if _, err := repos.Nexus.FindById(nexusId); err != nil {
			if errorx.IsNotFound(err) {
				return nil, errorx.New(errorx.CodeNotFound, "社区不存在")
			}
			return nil, err
		}
		return nil, errorx.New(errorx.CodeForbidden, "你不是该社区成员")
	}
	return m, nil
}

// Manager 要求用户是社区 owner 或 admin
func Manager(repos *repository.Repositories, nexusId, userId string) (*model.NexusMember, error) {
	m, err := Membership(repos, nexusId, userId)
	if err != nil {
		return nil, err
	}
	if !m.CanManage() {
		return nil, errorx.New(errorx.CodeForbidden, "只有社区管理员可以执行该操作")
	}
	return m, nil
}

// CreateNexus 创建社区
// 社区、owner 成员关系与默认文字频道在同一事务中写入，任一失败全部回滚
func (s *Service) CreateNexus(ctx context.Context, owner string, req request.CreateNexusRequest) (*model.Nexus, error) {
	name, err := validate.Name("社区名称", req.Name, constants.NEXUS_NAME_MAX_LEN)
	if err != nil {
		return nil, err
	}
	if err := validate.MaxLen("社区简介", req.Description, constants.NEXUS_DESC_MAX_LEN); err != nil {
		return nil, err
	}

	nexus := &model.Nexus{
		Id:          uuid.NewString(),
		Name:        name,
		OwnerId:     owner,
		Description: req.Description,
		IconUrl:     req.IconUrl,
		BannerUrl:   req.BannerUrl,
	}
	member := &model.NexusMember{
		Id:      uuid.NewString(),
		NexusId: nexus.Id,
		UserId:  owner,
		Role:    model.RoleOwner,
	}
	general := &model.Channel{
		Id:       uuid.NewString(),
		NexusId:  nexus.Id,
		Name:     constants.DEFAULT_CHANNEL_NAME,
		Type:     model.ChannelTypeText,
		Category: constants.DEFAULT_TEXT_CATEGORY,
		Position: 0,
	}
	err = s.notifier.Commit(ctx, []string{nexusKey(nexus.Id)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if _, err := tx.Profile.FindById(owner); err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "用户资料不存在")
				}
				return err
			}
			if err := tx.Nexus.Create(nexus); err != nil {
				return err
			}
			if err := tx.NexusMember.Create(member); err != nil {
				return err
			}
			return tx.Channel.Create(general)
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{
			nexusEvent(bus.Inserted, nexus),
			memberEvent(bus.Inserted, member),
			ChannelEvent(bus.Inserted, general),
		}, nil
	})
	if err != nil {
		return nil, busy(err, "创建社区失败", zap.String("owner", owner))
	}
	return nexus, nil
}

// GetNexus 查询社区详情，仅成员可见
func (s *Service) GetNexus(ctx context.Context, actor, nexusId string) (*model.Nexus, error) {
	repos := s.repos.WithContext(ctx)
	if _, err := Membership(repos, nexusId, actor); err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", nexusId))
	}
	n, err := repos.Nexus.FindById(nexusId)
	if err != nil {
		return nil, busy(err, "查询社区失败", zap.String("nexus", nexusId))
	}
	return n, nil
}

// ListMyNexuses 我加入的社区
func (s *Service) ListMyNexuses(ctx context.Context, userId string) ([]model.Nexus, error) {
	list, err := s.repos.WithContext(ctx).Nexus.FindByMember(userId)
	if err != nil {
		return nil, busy(err, "查询社区列表失败", zap.String("user", userId))
	}
	return list, nil
}

// ListMembers 社区成员列表
func (s *Service) ListMembers(ctx context.Context, actor, nexusId string) ([]repository.MemberWithProfile, error) {
	repos := s.repos.WithContext(ctx)
	if _, err := Membership(repos, nexusId, actor); err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", nexusId))
	}
	members, err := repos.NexusMember.FindWithProfiles(nexusId)
	if err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", nexusId))
	}
	return members, nil
}

// UpdateNexus 修改社区资料，owner/admin 可操作
func (s *Service) UpdateNexus(ctx context.Context, actor, nexusId string, req request.UpdateNexusRequest) (*model.Nexus, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		name, err := validate.Name("社区名称", *req.Name, constants.NEXUS_NAME_MAX_LEN)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if req.Description != nil {
		if err := validate.MaxLen("社区简介", *req.Description, constants.NEXUS_DESC_MAX_LEN); err != nil {
			return nil, err
		}
		updates["description"] = *req.Description
	}
	if req.IconUrl != nil {
		updates["icon_url"] = *req.IconUrl
	}
	if req.BannerUrl != nil {
		updates["banner_url"] = *req.BannerUrl
	}

	var updated *model.Nexus
	err := s.notifier.Commit(ctx, []string{nexusKey(nexusId)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if _, err := Manager(tx, nexusId, actor); err != nil {
				return err
			}
			if len(updates) > 0 {
				if err := tx.Nexus.Update(nexusId, updates); err != nil {
					return err
				}
			}
			n, err := tx.Nexus.FindById(nexusId)
			updated = n
			return err
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{nexusEvent(bus.Updated, updated)}, nil
	})
	if err != nil {
		return nil, busy(err, "更新社区失败", zap.String("nexus", nexusId))
	}
	return updated, nil
}

// AddMember 管理员直接添加成员
// owner 角色不可分配；已是成员返回 Conflict
func (s *Service) AddMember(ctx context.Context, actor, nexusId, userId, role string) (*model.NexusMember, error) {
	if role == "" {
		role = model.RoleMember
	}
	switch role {
	case model.RoleAdmin, model.RoleMember:
	case model.RoleOwner:
		return nil, errorx.New(errorx.CodeInvalidParam, "不能分配 owner 角色")
	default:
		return nil, errorx.New(errorx.CodeInvalidParam, "成员角色不合法")
	}

	member := &model.NexusMember{
		Id:      uuid.NewString(),
		NexusId: nexusId,
		UserId:  userId,
		Role:    role,
	}
	err := s.notifier.Commit(ctx, []string{memberKey(nexusId, userId)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if _, err := Manager(tx, nexusId, actor); err != nil {
				return err
			}
			if _, err := tx.Profile.FindById(userId); err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "用户不存在")
				}
				return err
			}
			if err := tx.NexusMember.Create(member); err != nil {
				if errorx.IsConflict(err) {
					return errorx.New(errorx.CodeConflict, "该用户已是社区成员")
				}
				return err
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{memberEvent(bus.Inserted, member)}, nil
	})
	if err != nil {
		return nil, busy(err, "添加社区成员失败", zap.String("nexus", nexusId), zap.String("user", userId))
	}
	return member, nil
}

// RemoveMember 成员退出或被移出
// owner 不能退出也不能被移出；移出他人需要 owner/admin，admin 不能移出其他 admin
func (s *Service) RemoveMember(ctx context.Context, actor, nexusId, userId string) error {
	err := s.notifier.Commit(ctx, []string{memberKey(nexusId, userId)}, func() ([]bus.Event, error) {
		var target *model.NexusMember
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			var err error
			target, err = tx.NexusMember.Find(nexusId, userId)
			if err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "该用户不是社区成员")
				}
				return err
			}
			if target.Role == model.RoleOwner {
				return errorx.New(errorx.CodeForbidden, "社区所有者不能退出或被移出")
			}
			if actor != userId {
				m, err := Manager(tx, nexusId, actor)
				if err != nil {
					return err
				}
				if m.Role != model.RoleOwner && target.Role == model.RoleAdmin {
					return errorx.New(errorx.CodeForbidden, "只有社区所有者可以移出管理员")
				}
			}
			n, err := tx.NexusMember.Delete(nexusId, userId)
			if err != nil {
				return err
			}
			if n == 0 {
				return errorx.New(errorx.CodeNotFound, "该用户不是社区成员")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{memberEvent(bus.Deleted, target)}, nil
	})
	if err != nil {
		return busy(err, "移除社区成员失败", zap.String("nexus", nexusId), zap.String("user", userId))
	}
	return nil
}

// CreateInvite 创建邀请码，任何成员都可以创建
// 邀请码冲突时重新生成，超过上限返回 CodeExhausted
func (s *Service) CreateInvite(ctx context.Context, creator, nexusId string, req request.CreateInviteRequest) (*model.Invite, error) {
	if req.MaxUses != nil && *req.MaxUses < 1 {
		return nil, errorx.New(errorx.CodeInvalidParam, "最大使用次数至少为 1")
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		at := req.ExpiresAt.UTC()
		if !at.After(s.now()) {
			return nil, errorx.New(errorx.CodeInvalidParam, "过期时间必须晚于当前时间")
		}
		expiresAt = &at
	}
	if _, err := Membership(s.repos.WithContext(ctx), nexusId, creator); err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", nexusId))
	}

	for attempt := 0; attempt < constants.INVITE_CODE_MAX_ATTEMPTS; attempt++ {
		invite := &model.Invite{
			Id:        uuid.NewString(),
			NexusId:   nexusId,
			Code:      s.newCode(),
			CreatedBy: creator,
			MaxUses:   req.MaxUses,
			ExpiresAt: expiresAt,
		}
		err := s.notifier.Commit(ctx, []string{inviteKey(invite.Id)}, func() ([]bus.Event, error) {
			if err := s.repos.WithContext(ctx).Invite.Create(invite); err != nil {
				return nil, err
			}
			return []bus.Event{inviteEvent(bus.Inserted, invite)}, nil
		})
		if err == nil {
			return invite, nil
		}
		if !errorx.IsConflict(err) {
			return nil, busy(err, "创建邀请码失败", zap.String("nexus", nexusId))
		}
	}
	zap.L().Warn("邀请码生成重试耗尽", zap.String("nexus", nexusId))
	return nil, errorx.ErrCodeExhausted
}

// ListInvites 社区的邀请码列表，owner/admin 可见
func (s *Service) ListInvites(ctx context.Context, actor, nexusId string) ([]model.Invite, error) {
	repos := s.repos.WithContext(ctx)
	if _, err := Manager(repos, nexusId, actor); err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", nexusId))
	}
	list, err := repos.Invite.FindByNexus(nexusId)
	if err != nil {
		return nil, busy(err, "查询邀请码失败", zap.String("nexus", nexusId))
	}
	return list, nil
}

// RedeemInvite 使用邀请码加入社区
// 使用次数通过带条件的 UPDATE 自增，并发兑换不会超过上限；写成员失败时自增随事务回滚
// 死锁或序列化失败这类临时错误按固定退避重试
func (s *Service) RedeemInvite(ctx context.Context, code, userId string) (*model.NexusMember, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "邀请码不能为空")
	}
	invite, err := s.repos.WithContext(ctx).Invite.FindByCode(code)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "邀请码不存在")
		}
		return nil, busy(err, "查询邀请码失败", zap.String("code", code))
	}

	var member *model.NexusMember
	for attempt := 1; ; attempt++ {
		member, err = s.redeemOnce(ctx, invite, userId)
		if err == nil || !errorx.IsTransient(err) || attempt >= constants.INVITE_REDEEM_MAX_ATTEMPTS {
			break
		}
		zap.L().Warn("兑换邀请码遇到临时错误，重试", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, busy(errorx.Wrap(ctx.Err(), errorx.CodeServerBusy, "请求已取消"), "兑换邀请码失败")
		case <-time.After(constants.RETRY_BACKOFF):
		}
	}
	if err != nil {
		return nil, busy(err, "兑换邀请码失败", zap.String("code", code), zap.String("user", userId))
	}
	return member, nil
}

func (s *Service) redeemOnce(ctx context.Context, invite *model.Invite, userId string) (*model.NexusMember, error) {
	member := &model.NexusMember{
		Id:      uuid.NewString(),
		NexusId: invite.NexusId,
		UserId:  userId,
		Role:    model.RoleMember,
	}
	err := s.notifier.Commit(ctx, []string{memberKey(invite.NexusId, userId), inviteKey(invite.Id)}, func() ([]bus.Event, error) {
		var used *model.Invite
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if _, err := tx.Profile.FindById(userId); err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "用户资料不存在")
				}
				return err
			}
			if _, err := tx.NexusMember.Find(invite.NexusId, userId); err == nil {
				return errorx.New(errorx.CodeConflict, "你已经是该社区成员")
			} else if !errorx.IsNotFound(err) {
				return err
			}

			now := s.now()
			n, err := tx.Invite.IncrementUses(invite.Id, now)
			if err != nil {
				return err
			}
			if n == 0 {
				current, err := tx.Invite.FindByCode(invite.Code)
				if err != nil {
					if errorx.IsNotFound(err) {
						return errorx.New(errorx.CodeNotFound, "邀请码不存在")
					}
					return err
				}
				if current.Expired(now) {
					return errorx.ErrInviteExpired
				}
				return errorx.New(errorx.CodeConflict, "邀请码使用次数已达上限")
			}
			if err := tx.NexusMember.Create(member); err != nil {
				if errorx.IsConflict(err) {
					return errorx.New(errorx.CodeConflict, "你已经是该社区成员")
				}
				return err
			}
			used, err = tx.Invite.FindByCode(invite.Code)
			return err
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{memberEvent(bus.Inserted, member), inviteEvent(bus.Updated, used)}, nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}
