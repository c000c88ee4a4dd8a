// Package channel 频道与频道消息
// 消息的 seq 是在频道锁内生成的雪花 ID，created_at 取自同一个 ID，(created_at, seq) 即频道内的全序
package channel

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/internal/service/nexus"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/snowflake"
	"nexus_chat_server/pkg/util/validate"
)

// Service 频道业务逻辑实现
type Service struct {
	repos    *repository.Repositories
	notifier *bus.Notifier
}

// NewService 构造函数
func NewService(repos *repository.Repositories, notifier *bus.Notifier) *Service {
	return &Service{repos: repos, notifier: notifier}
}

func channelKey(id string) string {
	return "channel:" + id
}

func positionKey(nexusId, category string) string {
	return "channels:" + nexusId + ":" + category
}

func messageEvent(kind bus.Kind, m *model.Message) bus.Event {
	return bus.NewEvent(kind, bus.EntityMessage, m.Id, m, bus.ChannelTopic(m.ChannelId))
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

func findChannel(repos *repository.Repositories, id string) (*model.Channel, error) {
	c, err := repos.Channel.FindById(id)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "频道不存在")
		}
		return nil, err
	}
	return c, nil
}

func findMessage(repos *repository.Repositories, id string) (*model.Message, error) {
	m, err := repos.Message.FindById(id)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
		}
		return nil, err
	}
	return m, nil
}

// Access 用户是否可以访问频道，返回频道本身
func (s *Service) Access(ctx context.Context, channelId, userId string) (*model.Channel, error) {
	repos := s.repos.WithContext(ctx)
	c, err := findChannel(repos, channelId)
	if err != nil {
		return nil, busy(err, "查询频道失败", zap.String("channel", channelId))
	}
	if _, err := nexus.Membership(repos, c.NexusId, userId); err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", c.NexusId))
	}
	return c, nil
}

// CreateChannel 创建频道，owner/admin 可操作
// 位置为分类内最大位置 +1；并发创建撞上唯一索引时重新计算位置
func (s *Service) CreateChannel(ctx context.Context, actor, nexusId string, req request.CreateChannelRequest) (*model.Channel, error) {
	name, err := validate.Name("频道名称", req.Name, constants.CHANNEL_NAME_MAX_LEN)
	if err != nil {
		return nil, err
	}
	kind := req.Type
	if kind == "" {
		kind = model.ChannelTypeText
	}
	category := strings.TrimSpace(req.Category)
	switch kind {
	case model.ChannelTypeText:
		if category == "" {
			category = constants.DEFAULT_TEXT_CATEGORY
		}
	case model.ChannelTypeVoice:
		if category == "" {
			category = constants.DEFAULT_VOICE_CATEGORY
		}
	default:
		return nil, errorx.New(errorx.CodeInvalidParam, "频道类型不合法")
	}
	if err := validate.MaxLen("频道分类", category, constants.CHANNEL_NAME_MAX_LEN); err != nil {
		return nil, err
	}
	if err := validate.MaxLen("频道简介", req.Description, 1024); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < constants.CHANNEL_POSITION_MAX_ATTEMPTS; attempt++ {
		ch := &model.Channel{
			Id:          uuid.NewString(),
			NexusId:     nexusId,
			Name:        name,
			Type:        kind,
			Category:    category,
			Description: req.Description,
		}
		err := s.notifier.Commit(ctx, []string{positionKey(nexusId, category)}, func() ([]bus.Event, error) {
			err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
				if _, err := nexus.Manager(tx, nexusId, actor); err != nil {
					return err
				}
				pos, ok, err := tx.Channel.MaxPosition(nexusId, category)
				if err != nil {
					return err
				}
				if ok {
					ch.Position = pos + 1
				}
				return tx.Channel.Create(ch)
			})
			if err != nil {
				return nil, err
			}
			return []bus.Event{nexus.ChannelEvent(bus.Inserted, ch)}, nil
		})
		if err == nil {
			return ch, nil
		}
		if !errorx.IsConflict(err) {
			return nil, busy(err, "创建频道失败", zap.String("nexus", nexusId))
		}
		zap.L().Debug("频道位置冲突，重试", zap.String("nexus", nexusId), zap.Int("attempt", attempt+1))
	}
	return nil, errorx.New(errorx.CodeConflict, "频道位置分配冲突，请稍后重试")
}

// ListChannels 社区频道列表，按分类、位置排序
func (s *Service) ListChannels(ctx context.Context, actor, nexusId string) ([]model.Channel, error) {
	repos := s.repos.WithContext(ctx)
	if _, err := nexus.Membership(repos, nexusId, actor); err != nil {
		return nil, busy(err, "查询社区成员失败", zap.String("nexus", nexusId))
	}
	list, err := repos.Channel.FindByNexus(nexusId)
	if err != nil {
		return nil, busy(err, "查询频道列表失败", zap.String("nexus", nexusId))
	}
	return list, nil
}

// DeleteChannel 删除频道及其全部消息
func (s *Service) DeleteChannel(ctx context.Context, actor, channelId string) error {
	ch, err := findChannel(s.repos.WithContext(ctx), channelId)
	if err != nil {
		return busy(err, "查询频道失败", zap.String("channel", channelId))
	}
	keys := []string{channelKey(ch.Id), positionKey(ch.NexusId, ch.Category)}
	err = s.notifier.Commit(ctx, keys, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if _, err := nexus.Manager(tx, ch.NexusId, actor); err != nil {
				return err
			}
			if err := tx.Message.DeleteByChannel(ch.Id); err != nil {
				return err
			}
			return tx.Channel.DeleteById(ch.Id)
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{nexus.ChannelEvent(bus.Deleted, ch)}, nil
	})
	if err != nil {
		return busy(err, "删除频道失败", zap.String("channel", channelId))
	}
	return nil
}

// PostMessage 发送频道消息
// 仅社区成员可发送；语音频道不接受文字消息；reply_to 必须是同一频道内的消息
func (s *Service) PostMessage(ctx context.Context, channelId, authorId string, req request.PostMessageRequest) (*model.Message, error) {
	content, err := validate.Content(req.Content)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		Id:        uuid.NewString(),
		ChannelId: channelId,
		AuthorId:  authorId,
		Content:   content,
	}
	err = s.notifier.Commit(ctx, []string{channelKey(channelId)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			ch, err := findChannel(tx, channelId)
			if err != nil {
				return err
			}
			if _, err := nexus.Membership(tx, ch.NexusId, authorId); err != nil {
				return err
			}
			if ch.Type != model.ChannelTypeText {
				return errorx.New(errorx.CodeInvalidParam, "语音频道不能发送文字消息")
			}
			if req.ReplyTo != nil && *req.ReplyTo != "" {
				parent, err := tx.Message.FindById(*req.ReplyTo)
				if err != nil && !errorx.IsNotFound(err) {
					return err
				}
				if parent == nil || parent.ChannelId != channelId {
					return errorx.ErrInvalidReference
				}
				replyTo := parent.Id
				msg.ReplyTo = &replyTo
			}
			msg.Seq, msg.CreatedAt = snowflake.Next()
			msg.UpdatedAt = msg.CreatedAt
			return tx.Message.Create(msg)
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{messageEvent(bus.Inserted, msg)}, nil
	})
	if err != nil {
		return nil, busy(err, "发送消息失败", zap.String("channel", channelId), zap.String("author", authorId))
	}
	return msg, nil
}

// ListMessages 拉取频道消息，结果按 (created_at, seq) 正序
// limit > 0 时返回 beforeSeq 之前最新的 limit 条，limit 上限 100
func (s *Service) ListMessages(ctx context.Context, actor, channelId string, beforeSeq int64, limit int) ([]model.Message, error) {
	if _, err := s.Access(ctx, channelId, actor); err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = 0
	}
	if limit > constants.MESSAGE_PAGE_MAX {
		limit = constants.MESSAGE_PAGE_MAX
	}
	list, err := s.repos.WithContext(ctx).Message.FindByChannel(channelId, beforeSeq, limit)
	if err != nil {
		return nil, busy(err, "查询频道消息失败", zap.String("channel", channelId))
	}
	return list, nil
}

// EditMessage 编辑消息，仅作者本人可操作；seq 与 created_at 不变
func (s *Service) EditMessage(ctx context.Context, id, editor, content string) (*model.Message, error) {
	content, err := validate.Content(content)
	if err != nil {
		return nil, err
	}
	current, err := findMessage(s.repos.WithContext(ctx), id)
	if err != nil {
		return nil, busy(err, "查询消息失败", zap.String("id", id))
	}
	var updated *model.Message
	err = s.notifier.Commit(ctx, []string{channelKey(current.ChannelId)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			m, err := findMessage(tx, id)
			if err != nil {
				return err
			}
			if m.AuthorId != editor {
				return errorx.New(errorx.CodeForbidden, "只能编辑自己的消息")
			}
			if err := tx.Message.UpdateContent(id, content); err != nil {
				return err
			}
			updated, err = findMessage(tx, id)
			return err
		})
		if err != nil {
			return nil, err
		}
		return []bus.Event{messageEvent(bus.Updated, updated)}, nil
	})
	if err != nil {
		return nil, busy(err, "编辑消息失败", zap.String("id", id))
	}
	return updated, nil
}

// DeleteMessage 删除消息，作者本人或社区 owner/admin 可操作
// 回复该消息的消息在同一事务内清空 reply_to
func (s *Service) DeleteMessage(ctx context.Context, id, actor string) error {
	current, err := findMessage(s.repos.WithContext(ctx), id)
	if err != nil {
		return busy(err, "查询消息失败", zap.String("id", id))
	}
	err = s.notifier.Commit(ctx, []string{channelKey(current.ChannelId)}, func() ([]bus.Event, error) {
		var (
			deleted *model.Message
			replies []model.Message
		)
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			var err error
			deleted, err = findMessage(tx, id)
			if err != nil {
				return err
			}
			if deleted.AuthorId != actor {
				ch, err := findChannel(tx, deleted.ChannelId)
				if err != nil {
					return err
				}
				if _, err := nexus.Manager(tx, ch.NexusId, actor); err != nil {
					return err
				}
			}
			replies, err = tx.Message.FindReplies(id)
			if err != nil {
				return err
			}
			if err := tx.Message.ClearReplyTo(id); err != nil {
				return err
			}
			return tx.Message.DeleteById(id)
		})
		if err != nil {
			return nil, err
		}
		events := []bus.Event{messageEvent(bus.Deleted, deleted)}
		for i := range replies {
			replies[i].ReplyTo = nil
			events = append(events, messageEvent(bus.Updated, &replies[i]))
		}
		return events, nil
	})
	if err != nil {
		return busy(err, "删除消息失败", zap.String("id", id))
	}
	return nil
}
