package respond

import (
	"time"

	"nexus_chat_server/internal/model"
)

// FriendRespond 好友列表/待处理请求/黑名单中的一项
// 使用位置:
//   - internal/service/social/service.go: ListFriends, ListPending, ListBlocked
type FriendRespond struct {
	RequestId string        `json:"request_id"` // 对应 friendships 行 ID
	Status    string        `json:"status"`
	Direction string        `json:"direction"` // incoming / outgoing
	Profile   model.Profile `json:"profile"`
	CreatedAt time.Time     `json:"created_at"`
}

// ConversationRespond 私信会话列表中的一项
// 使用位置:
//   - internal/service/dm/service.go: ListConversations
type ConversationRespond struct {
	PairKey string        `json:"pair_key"`
	Profile model.Profile `json:"profile"`
}
