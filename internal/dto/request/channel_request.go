package request

// CreateChannelRequest 创建频道请求，category 为空时按类型使用默认分类
// 使用位置:
//   - internal/handler/channel_handler.go: CreateChannel
//   - internal/service/channel/service.go: CreateChannel
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Type        string `json:"type" binding:"omitempty,channel_type"`
	Category    string `json:"category" binding:"max=100"`
	Description string `json:"description" binding:"max=1024"`
}

// PostMessageRequest 发送频道消息
type PostMessageRequest struct {
	Content string  `json:"content" binding:"required"`
	ReplyTo *string `json:"reply_to"`
}

// EditMessageRequest 编辑消息（频道消息与私信共用）
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListMessagesRequest 分页拉取消息，limit 为 0 表示全部
type ListMessagesRequest struct {
	BeforeSeq int64 `form:"before_seq" binding:"min=0"`
	Limit     int   `form:"limit" binding:"min=0,max=100"`
}

// SendDirectMessageRequest 发送私信
type SendDirectMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
