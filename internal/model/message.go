package model

import "time"

// Message 频道消息
// Seq 为雪花 ID，CreatedAt 取自同一个 ID 的时间戳，(created_at, seq) 构成全序
type Message struct {
	Id        string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	Seq       int64     `gorm:"column:seq;not null;uniqueIndex" json:"seq"`
	ChannelId string    `gorm:"column:channel_id;type:char(36);not null;index:idx_message_order,priority:1" json:"channel_id"`
	AuthorId  string    `gorm:"column:author_id;type:char(36);not null;index" json:"author_id"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	ReplyTo   *string   `gorm:"column:reply_to;type:char(36);index" json:"reply_to"`
	Edited    bool      `gorm:"column:edited;not null;default:false" json:"edited"`
	CreatedAt time.Time `gorm:"column:created_at;index:idx_message_order,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// DirectMessage 私信
// PairKey 为两个用户 ID 排序后以 ":" 连接，会话内排序规则与频道消息一致
type DirectMessage struct {
	Id         string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	Seq        int64     `gorm:"column:seq;not null;uniqueIndex" json:"seq"`
	PairKey    string    `gorm:"column:pair_key;type:varchar(80);not null;index:idx_dm_order,priority:1" json:"pair_key"`
	SenderId   string    `gorm:"column:sender_id;type:char(36);not null;check:chk_dm_self,sender_id <> receiver_id" json:"sender_id"`
	ReceiverId string    `gorm:"column:receiver_id;type:char(36);not null" json:"receiver_id"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	Edited     bool      `gorm:"column:edited;not null;default:false" json:"edited"`
	CreatedAt  time.Time `gorm:"column:created_at;index:idx_dm_order,priority:2" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (DirectMessage) TableName() string {
	return "direct_messages"
}

// PairKey 生成与参数顺序无关的会话键
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
