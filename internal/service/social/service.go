// Package social 好友关系图
// 有向边状态机：none -> pending -> {accepted, 删除}；accepted 与 blocked 需显式撤销
// 接受请求后两个方向各有一条 accepted 边，始终保持对称
package social

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/errorx"
)

// Service 好友关系业务逻辑实现
type Service struct {
	repos    *repository.Repositories
	notifier *bus.Notifier
}

// NewService 构造函数
func NewService(repos *repository.Repositories, notifier *bus.Notifier) *Service {
	return &Service{repos: repos, notifier: notifier}
}

func pairLock(a, b string) []string {
	return []string{"friendship:" + model.PairKey(a, b)}
}

func edgeEvent(kind bus.Kind, f *model.Friendship) bus.Event {
	return bus.NewEvent(kind, bus.EntityFriendship, f.Id, f, bus.UserTopic(f.UserId), bus.UserTopic(f.FriendId))
}

// lockPair 按 ID 顺序锁定双方资料行，跨实例的相反方向请求因此串行
func lockPair(tx *repository.Repositories, a, b string) error {
	first, second := a, b
	if first > second {
		first, second = second, first
	}
	for _, id := range []string{first, second} {
		if _, err := tx.Profile.FindByIdForUpdate(id); err != nil {
			if errorx.IsNotFound(err) {
				return errorx.New(errorx.CodeNotFound, "用户不存在")
			}
			return err
		}
	}
	return nil
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

// SendRequest 发送好友请求
// 两人之间已有任意方向的边（包括拉黑）时返回 Conflict
func (s *Service) SendRequest(ctx context.Context, from, to string) (*model.Friendship, error) {
	if from == to {
		return nil, errorx.New(errorx.CodeSelfReference, "不能添加自己为好友")
	}
	edge := &model.Friendship{
		Id:       uuid.NewString(),
		UserId:   from,
		FriendId: to,
		Status:   model.FriendshipPending,
	}
	err := s.notifier.Commit(ctx, pairLock(from, to), func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := lockPair(tx, from, to); err != nil {
				return err
			}
			existing, err := tx.Friendship.FindBetween(from, to)
			if err != nil {
				return err
			}
			for _, e := range existing {
				switch e.Status {
				case model.FriendshipBlocked:
					return errorx.New(errorx.CodeConflict, "无法向该用户发送好友请求")
				case model.FriendshipAccepted:
					return errorx.New(errorx.CodeConflict, "你们已经是好友了")
				default:
					return errorx.New(errorx.CodeConflict, "好友请求已存在")
				}
			}
			return tx.Friendship.Create(edge)
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{edgeEvent(bus.Inserted, edge)}, nil
	})
	if err != nil {
		return nil, busy(err, "发送好友请求失败", zap.String("from", from), zap.String("to", to))
	}
	return edge, nil
}

// loadEdge 事务外读取边，用于确定锁的键
func (s *Service) loadEdge(ctx context.Context, id string) (*model.Friendship, error) {
	edge, err := s.repos.WithContext(ctx).Friendship.FindById(id)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "好友请求不存在")
		}
		return nil, busy(err, "查询好友请求失败", zap.String("id", id))
	}
	return edge, nil
}

// AcceptRequest 接受好友请求，只有接收方可以操作
// 同一事务内把 pending 改为 accepted 并写入反向的 accepted 边
func (s *Service) AcceptRequest(ctx context.Context, actor, requestId string) (*model.Friendship, error) {
	edge, err := s.loadEdge(ctx, requestId)
	if err != nil {
		return nil, err
	}
	var accepted *model.Friendship
	err = s.notifier.Commit(ctx, pairLock(edge.UserId, edge.FriendId), func() ([]bus.Event, error) {
		var mirror *model.Friendship
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := lockPair(tx, edge.UserId, edge.FriendId); err != nil {
				return err
			}
			current, err := tx.Friendship.FindById(requestId)
			if err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "好友请求不存在")
				}
				return err
			}
			if current.FriendId != actor {
				return errorx.New(errorx.CodeForbidden, "只有接收方可以接受好友请求")
			}
			n, err := tx.Friendship.TransitionStatus(requestId, model.FriendshipPending, model.FriendshipAccepted)
			if err != nil {
				return err
			}
			if n == 0 {
				return errorx.New(errorx.CodeConflict, "该请求已处理")
			}
			mirror = &model.Friendship{
				Id:       uuid.NewString(),
				UserId:   current.FriendId,
				FriendId: current.UserId,
				Status:   model.FriendshipAccepted,
			}
			if err := tx.Friendship.Create(mirror); err != nil {
				return err
			}
			accepted, err = tx.Friendship.FindById(requestId)
			return err
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{edgeEvent(bus.Updated, accepted), edgeEvent(bus.Inserted, mirror)}, nil
	})
	if err != nil {
		return nil, busy(err, "接受好友请求失败", zap.String("request", requestId))
	}
	return accepted, nil
}

// DeclineRequest 接收方拒绝或发送方撤回，删除 pending 边
func (s *Service) DeclineRequest(ctx context.Context, actor, requestId string) error {
	edge, err := s.loadEdge(ctx, requestId)
	if err != nil {
		return err
	}
	err = s.notifier.Commit(ctx, pairLock(edge.UserId, edge.FriendId), func() ([]bus.Event, error) {
		var current *model.Friendship
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := lockPair(tx, edge.UserId, edge.FriendId); err != nil {
				return err
			}
			var err error
			current, err = tx.Friendship.FindById(requestId)
			if err != nil {
				if errorx.IsNotFound(err) {
					return errorx.New(errorx.CodeNotFound, "好友请求不存在")
				}
				return err
			}
			if current.FriendId != actor && current.UserId != actor {
				return errorx.New(errorx.CodeForbidden, "无权处理该好友请求")
			}
			if current.Status != model.FriendshipPending {
				return errorx.New(errorx.CodeConflict, "该请求已处理")
			}
			return tx.Friendship.DeleteByIds([]string{current.Id})
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{edgeEvent(bus.Deleted, current)}, nil
	})
	if err != nil {
		return busy(err, "拒绝好友请求失败", zap.String("request", requestId))
	}
	return nil
}

// Unfriend 删除双向 accepted 边
func (s *Service) Unfriend(ctx context.Context, a, b string) error {
	if a == b {
		return errorx.ErrSelfReference
	}
	err := s.notifier.Commit(ctx, pairLock(a, b), func() ([]bus.Event, error) {
		var removed []model.Friendship
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := lockPair(tx, a, b); err != nil {
				return err
			}
			edges, err := tx.Friendship.FindBetween(a, b)
			if err != nil {
				return err
			}
			ids := make([]string, 0, 2)
			for _, e := range edges {
				if e.Status == model.FriendshipAccepted {
					removed = append(removed, e)
					ids = append(ids, e.Id)
				}
			}
			if len(ids) == 0 {
				return errorx.New(errorx.CodeNotFound, "你们还不是好友")
			}
			return tx.Friendship.DeleteByIds(ids)
		})
		if err != nil {
			return nil, err
		}
		events := make([]bus.Event, 0, len(removed))
		for i := range removed {
			events = append(events, edgeEvent(bus.Deleted, &removed[i]))
		}
		return events, nil
	})
	if err != nil {
		return busy(err, "删除好友失败", zap.String("a", a), zap.String("b", b))
	}
	return nil
}

// Block a 拉黑 b：删除两人之间所有非拉黑的边，并写入 a->b blocked
// 已拉黑时幂等返回现有记录；b 对 a 的拉黑保持不变
func (s *Service) Block(ctx context.Context, a, b string) (*model.Friendship, error) {
	if a == b {
		return nil, errorx.New(errorx.CodeSelfReference, "不能拉黑自己")
	}
	var block *model.Friendship
	err := s.notifier.Commit(ctx, pairLock(a, b), func() ([]bus.Event, error) {
		var events []bus.Event
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := lockPair(tx, a, b); err != nil {
				return err
			}
			edges, err := tx.Friendship.FindBetween(a, b)
			if err != nil {
				return err
			}
			var ids []string
			for i := range edges {
				e := edges[i]
				if e.Status == model.FriendshipBlocked {
					if e.UserId == a {
						block = &e
					}
					continue
				}
				ids = append(ids, e.Id)
				events = append(events, edgeEvent(bus.Deleted, &e))
			}
			if err := tx.Friendship.DeleteByIds(ids); err != nil {
				return err
			}
			if block != nil {
				return nil
			}
			block = &model.Friendship{
				Id:       uuid.NewString(),
				UserId:   a,
				FriendId: b,
				Status:   model.FriendshipBlocked,
			}
			if err := tx.Friendship.Create(block); err != nil {
				return err
			}
			events = append(events, edgeEvent(bus.Inserted, block))
			return nil
		})
		if err != nil {
			events = nil
		}
		return events, err
	})
	if err != nil {
		return nil, busy(err, "拉黑失败", zap.String("a", a), zap.String("b", b))
	}
	return block, nil
}

// Unblock 解除 a 对 b 的拉黑
func (s *Service) Unblock(ctx context.Context, a, b string) error {
	err := s.notifier.Commit(ctx, pairLock(a, b), func() ([]bus.Event, error) {
		var removed *model.Friendship
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := lockPair(tx, a, b); err != nil {
				return err
			}
			edges, err := tx.Friendship.FindBetween(a, b)
			if err != nil {
				return err
			}
			for i := range edges {
				if edges[i].UserId == a && edges[i].Status == model.FriendshipBlocked {
					removed = &edges[i]
				}
			}
			if removed == nil {
				return errorx.New(errorx.CodeNotFound, "未拉黑该用户")
			}
			return tx.Friendship.DeleteByIds([]string{removed.Id})
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{edgeEvent(bus.Deleted, removed)}, nil
	})
	if err != nil {
		return busy(err, "解除拉黑失败", zap.String("a", a), zap.String("b", b))
	}
	return nil
}

// ListFriends 好友列表
func (s *Service) ListFriends(ctx context.Context, userId string) ([]respond.FriendRespond, error) {
	repos := s.repos.WithContext(ctx)
	edges, err := repos.Friendship.FindOutgoing(userId, model.FriendshipAccepted)
	if err != nil {
		return nil, busy(err, "查询好友列表失败", zap.String("user", userId))
	}
	return s.withProfiles(repos, edges, "outgoing", func(e model.Friendship) string { return e.FriendId })
}

// ListPending 待处理的好友请求：收到的在前，发出的在后
func (s *Service) ListPending(ctx context.Context, userId string) ([]respond.FriendRespond, error) {
	repos := s.repos.WithContext(ctx)
	incoming, err := repos.Friendship.FindIncoming(userId, model.FriendshipPending)
	if err != nil {
		return nil, busy(err, "查询好友请求失败", zap.String("user", userId))
	}
	outgoing, err := repos.Friendship.FindOutgoing(userId, model.FriendshipPending)
	if err != nil {
		return nil, busy(err, "查询好友请求失败", zap.String("user", userId))
	}
	in, err := s.withProfiles(repos, incoming, "incoming", func(e model.Friendship) string { return e.UserId })
	if err != nil {
		return nil, err
	}
	out, err := s.withProfiles(repos, outgoing, "outgoing", func(e model.Friendship) string { return e.FriendId })
	if err != nil {
		return nil, err
	}
	return append(in, out...), nil
}

// ListBlocked 我拉黑的用户
func (s *Service) ListBlocked(ctx context.Context, userId string) ([]respond.FriendRespond, error) {
	repos := s.repos.WithContext(ctx)
	edges, err := repos.Friendship.FindOutgoing(userId, model.FriendshipBlocked)
	if err != nil {
		return nil, busy(err, "查询黑名单失败", zap.String("user", userId))
	}
	return s.withProfiles(repos, edges, "outgoing", func(e model.Friendship) string { return e.FriendId })
}

func (s *Service) withProfiles(repos *repository.Repositories, edges []model.Friendship, direction string, other func(model.Friendship) string) ([]respond.FriendRespond, error) {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, other(e))
	}
	profiles, err := repos.Profile.FindByIds(ids)
	if err != nil {
		return nil, busy(err, "批量查询用户资料失败")
	}
	byId := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byId[p.Id] = p
	}
	list := make([]respond.FriendRespond, 0, len(edges))
	for _, e := range edges {
		p, ok := byId[other(e)]
		if !ok {
			continue
		}
		list = append(list, respond.FriendRespond{
			RequestId: e.Id,
			Status:    e.Status,
			Direction: direction,
			Profile:   p,
			CreatedAt: e.CreatedAt,
		})
	}
	return list, nil
}
