// Package bus 实现变更通知总线
// 服务层在事务提交后发布实体变更事件，订阅者按谓词过滤接收
// 同一实体的事件按提交顺序送达；消费过慢的订阅者会被断开，由客户端重新加载
package bus

import (
	"encoding/json"
	"errors"
	"time"
)

// Kind 变更类型
type Kind string

const (
	Inserted Kind = "inserted"
	Updated  Kind = "updated"
	Deleted  Kind = "deleted"
)

// 实体类型
const (
	EntityProfile       = "profile"
	EntityFriendship    = "friendship"
	EntityNexus         = "nexus"
	EntityNexusMember   = "nexus_member"
	EntityChannel       = "channel"
	EntityMessage       = "message"
	EntityDirectMessage = "direct_message"
	EntityInvite        = "invite"
)

// ErrSlowConsumer 订阅者缓冲区已满被断开
var ErrSlowConsumer = errors.New("subscriber too slow, reload required")

// ErrClosed 订阅已被主动取消
var ErrClosed = errors.New("subscription closed")

// Event 一次已提交的实体变更
// Snapshot 是变更后的行（删除时为删除前的行）的 JSON
type Event struct {
	Kind        Kind            `json:"kind"`
	EntityType  string          `json:"entity_type"`
	EntityId    string          `json:"entity_id"`
	Topics      []string        `json:"topics"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
	CommittedAt time.Time       `json:"committed_at"`
}

// NewEvent 构造事件，snapshot 序列化失败时置空
func NewEvent(kind Kind, entityType, entityId string, snapshot any, topics ...string) Event {
	ev := Event{
		Kind:       kind,
		EntityType: entityType,
		EntityId:   entityId,
		Topics:     dedupe(topics),
	}
	if snapshot != nil {
		if raw, err := json.Marshal(snapshot); err == nil {
			ev.Snapshot = raw
		}
	}
	return ev
}

// HasTopic 事件是否属于某个主题
func (e Event) HasTopic(topic string) bool {
	for _, t := range e.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Decode 将快照解析到 v
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Snapshot, v)
}

func dedupe(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
