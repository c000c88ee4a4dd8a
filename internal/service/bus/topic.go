package bus

import "strings"

// 主题前缀
const (
	TopicUser    = "user"
	TopicProfile = "profile"
	TopicNexus   = "nexus"
	TopicChannel = "channel"
	TopicDM      = "dm"
)

// UserTopic 用户私有主题：好友关系变化、加入的社区等
func UserTopic(userId string) string { return TopicUser + ":" + userId }

// ProfileTopic 用户资料主题，任何人可订阅
func ProfileTopic(userId string) string { return TopicProfile + ":" + userId }

// NexusTopic 社区主题：社区资料、成员、频道、邀请
func NexusTopic(nexusId string) string { return TopicNexus + ":" + nexusId }

// ChannelTopic 频道消息主题
func ChannelTopic(channelId string) string { return TopicChannel + ":" + channelId }

// DMTopic 私信会话主题
func DMTopic(pairKey string) string { return TopicDM + ":" + pairKey }

// ParseTopic 拆分 "kind:id"
func ParseTopic(topic string) (kind, id string, ok bool) {
	kind, id, ok = strings.Cut(topic, ":")
	if !ok || kind == "" || id == "" {
		return "", "", false
	}
	return kind, id, true
}

// Predicate 订阅过滤条件
type Predicate func(Event) bool

// TopicIs 只接收指定主题的事件
func TopicIs(topic string) Predicate {
	return func(e Event) bool { return e.HasTopic(topic) }
}

// AnyTopic 接收任一主题的事件
func AnyTopic(topics ...string) Predicate {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return func(e Event) bool {
		for _, t := range e.Topics {
			if _, ok := set[t]; ok {
				return true
			}
		}
		return false
	}
}
