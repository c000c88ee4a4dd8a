package model

import "time"

// 频道类型
const (
	ChannelTypeText  = "text"
	ChannelTypeVoice = "voice"
)

// Channel 社区下的频道
// 同一社区同一分类内 position 唯一
type Channel struct {
	Id          string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	NexusId     string    `gorm:"column:nexus_id;type:char(36);not null;uniqueIndex:idx_channel_position,priority:1" json:"nexus_id"`
	Name        string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Type        string    `gorm:"column:type;type:varchar(16);not null;default:text" json:"type"`
	Category    string    `gorm:"column:category;type:varchar(100);not null;uniqueIndex:idx_channel_position,priority:2" json:"category"`
	Position    int       `gorm:"column:position;not null;uniqueIndex:idx_channel_position,priority:3" json:"position"`
	Description string    `gorm:"column:description;type:varchar(1024)" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Channel) TableName() string {
	return "channels"
}
