package websocket

import (
	"context"
	"strings"

	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/errorx"
)

// Subscriber 变更事件来源，由 bus.Notifier 实现
type Subscriber interface {
	Subscribe(pred bus.Predicate) *bus.Subscription
	Unsubscribe(s *bus.Subscription)
}

// Authorizer 判断用户能否订阅某个主题
// 通过时返回主题所属社区，社区范围外的主题返回空串
type Authorizer interface {
	Authorize(ctx context.Context, userId, topic string) (string, error)
}

// NexusReader 社区成员鉴权
type NexusReader interface {
	GetNexus(ctx context.Context, actor, nexusId string) (*model.Nexus, error)
}

// ChannelReader 频道访问鉴权
type ChannelReader interface {
	Access(ctx context.Context, channelId, userId string) (*model.Channel, error)
}

// TopicAuthorizer 按主题类型鉴权
//   - user:<id>     仅本人
//   - profile:<id>  任何人
//   - nexus:<id>    社区成员
//   - channel:<id>  频道所属社区的成员
//   - dm:<a>:<b>    会话双方
type TopicAuthorizer struct {
	Nexus   NexusReader
	Channel ChannelReader
}

// Authorize 实现 Authorizer
func (a TopicAuthorizer) Authorize(ctx context.Context, userId, topic string) (string, error) {
	kind, id, ok := bus.ParseTopic(topic)
	if !ok {
		return "", errorx.New(errorx.CodeInvalidParam, "主题格式错误")
	}
	switch kind {
	case bus.TopicUser:
		if id != userId {
			return "", errorx.New(errorx.CodeForbidden, "不能订阅他人的私有主题")
		}
		return "", nil
	case bus.TopicProfile:
		return "", nil
	case bus.TopicNexus:
		if _, err := a.Nexus.GetNexus(ctx, userId, id); err != nil {
			return "", err
		}
		return id, nil
	case bus.TopicChannel:
		ch, err := a.Channel.Access(ctx, id, userId)
		if err != nil {
			return "", err
		}
		return ch.NexusId, nil
	case bus.TopicDM:
		first, second, ok := strings.Cut(id, ":")
		if !ok || id != model.PairKey(first, second) {
			return "", errorx.New(errorx.CodeInvalidParam, "会话键格式错误")
		}
		if first != userId && second != userId {
			return "", errorx.New(errorx.CodeForbidden, "不能订阅他人的私信")
		}
		return "", nil
	}
	return "", errorx.Newf(errorx.CodeInvalidParam, "未知主题类型 %s", kind)
}
