// Package dm 私信
// 会话由 pair_key 标识，排序规则与频道消息相同
package dm

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/snowflake"
	"nexus_chat_server/pkg/util/validate"
)

// Policy 私信准入策略
type Policy string

const (
	PolicyOpen        Policy = "open"         // 不做检查
	PolicyNoBlock     Policy = "no_block"     // 任一方拉黑对方时禁止
	PolicyFriendsOnly Policy = "friends_only" // 仅好友之间
)

// ParsePolicy 解析配置中的策略，空串取默认 no_block
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyNoBlock, nil
	case PolicyOpen, PolicyNoBlock, PolicyFriendsOnly:
		return p, nil
	}
	return "", errorx.Newf(errorx.CodeInvalidParam, "未知的私信策略 %q", s)
}

// Service 私信业务逻辑实现
type Service struct {
	repos    *repository.Repositories
	notifier *bus.Notifier
	policy   Policy
}

// NewService 构造函数
func NewService(repos *repository.Repositories, notifier *bus.Notifier, policy Policy) *Service {
	if policy == "" {
		policy = PolicyNoBlock
	}
	return &Service{repos: repos, notifier: notifier, policy: policy}
}

func dmKey(pairKey string) string {
	return "dm:" + pairKey
}

func dmEvent(kind bus.Kind, m *model.DirectMessage) bus.Event {
	return bus.NewEvent(kind, bus.EntityDirectMessage, m.Id, m,
		bus.DMTopic(m.PairKey), bus.UserTopic(m.SenderId), bus.UserTopic(m.ReceiverId))
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

// allowed 按策略检查 sender 能否给 receiver 发私信
func (s *Service) allowed(tx *repository.Repositories, sender, receiver string) error {
	if s.policy == PolicyOpen {
		return nil
	}
	edges, err := tx.Friendship.FindBetween(sender, receiver)
	if err != nil {
		return err
	}
	friends := false
	for _, e := range edges {
		switch e.Status {
		case model.FriendshipBlocked:
			return errorx.New(errorx.CodeForbidden, "无法给该用户发送私信")
		case model.FriendshipAccepted:
			friends = true
		}
	}
	if s.policy == PolicyFriendsOnly && !friends {
		return errorx.New(errorx.CodeForbidden, "只能给好友发送私信")
	}
	return nil
}

// SendDirectMessage 发送私信
func (s *Service) SendDirectMessage(ctx context.Context, sender, receiver, content string) (*model.DirectMessage, error) {
	if sender == receiver {
		return nil, errorx.New(errorx.CodeSelfReference, "不能给自己发私信")
	}
	content, err := validate.Content(content)
	if err != nil {
		return nil, err
	}
	msg := &model.DirectMessage{
		Id:         uuid.NewString(),
		PairKey:    model.PairKey(sender, receiver),
		SenderId:   sender,
		ReceiverId: receiver,
		Content:    content,
	}
	err = s.notifier.Commit(ctx, []string{dmKey(msg.PairKey)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if _, err := tx.Profile.FindById(receiver); err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "接收方不存在")
				}
				return err
			}
			if err := s.allowed(tx, sender, receiver); err != nil {
				return err
			}
			msg.Seq, msg.CreatedAt = snowflake.Next()
			msg.UpdatedAt = msg.CreatedAt
			return tx.DirectMessage.Create(msg)
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{dmEvent(bus.Inserted, msg)}, nil
	})
	if err != nil {
		return nil, busy(err, "发送私信失败", zap.String("sender", sender), zap.String("receiver", receiver))
	}
	return msg, nil
}

// ListConversation a 与 b 之间的私信，按 (created_at, seq) 正序
// limit > 0 时返回 beforeSeq 之前最新的 limit 条
func (s *Service) ListConversation(ctx context.Context, a, b string, beforeSeq int64, limit int) ([]model.DirectMessage, error) {
	if a == b {
		return nil, errorx.New(errorx.CodeSelfReference, "不能查看与自己的私信")
	}
	if limit < 0 {
		limit = 0
	}
	if limit > constants.MESSAGE_PAGE_MAX {
		limit = constants.MESSAGE_PAGE_MAX
	}
	list, err := s.repos.WithContext(ctx).DirectMessage.FindByPair(model.PairKey(a, b), beforeSeq, limit)
	if err != nil {
		return nil, busy(err, "查询私信失败", zap.String("a", a), zap.String("b", b))
	}
	return list, nil
}

// EditDirectMessage 编辑私信，仅发送方可操作
func (s *Service) EditDirectMessage(ctx context.Context, id, editor, content string) (*model.DirectMessage, error) {
	content, err := validate.Content(content)
	if err != nil {
		return nil, err
	}
	current, err := s.repos.WithContext(ctx).DirectMessage.FindById(id)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "私信不存在")
		}
		return nil, busy(err, "查询私信失败", zap.String("id", id))
	}
	if current.SenderId != editor {
		return nil, errorx.New(errorx.CodeForbidden, "只能编辑自己发送的私信")
	}
	var updated *model.DirectMessage
	err = s.notifier.Commit(ctx, []string{dmKey(current.PairKey)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := tx.DirectMessage.UpdateContent(id, content); err != nil {
				return err
			}
			var err error
			updated, err = tx.DirectMessage.FindById(id)
			return err
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{dmEvent(bus.Updated, updated)}, nil
	})
	if err != nil {
		return nil, busy(err, "编辑私信失败", zap.String("id", id))
	}
	return updated, nil
}

// ListConversations 私信侧边栏：所有好友及对应的会话键
func (s *Service) ListConversations(ctx context.Context, userId string) ([]respond.ConversationRespond, error) {
	repos := s.repos.WithContext(ctx)
	edges, err := repos.Friendship.FindOutgoing(userId, model.FriendshipAccepted)
	if err != nil {
		return nil, busy(err, "查询好友列表失败", zap.String("user", userId))
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FriendId)
	}
	profiles, err := repos.Profile.FindByIds(ids)
	if err != nil {
		return nil, busy(err, "批量查询用户资料失败")
	}
	list := make([]respond.ConversationRespond, 0, len(profiles))
	for _, p := range profiles {
		list = append(list, respond.ConversationRespond{
			PairKey: model.PairKey(userId, p.Id),
			Profile: p,
		})
	}
	return list, nil
}
