package model

import "time"

// Invite 社区邀请码
// MaxUses 为 nil 表示不限次数，ExpiresAt 为 nil 表示永不过期；始终满足 uses <= max_uses
type Invite struct {
	Id        string     `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	NexusId   string     `gorm:"column:nexus_id;type:char(36);not null;index" json:"nexus_id"`
	Code      string     `gorm:"column:code;type:varchar(16);not null;uniqueIndex" json:"code"`
	CreatedBy string     `gorm:"column:created_by;type:char(36);not null" json:"created_by"`
	MaxUses   *int       `gorm:"column:max_uses" json:"max_uses"`
	Uses      int        `gorm:"column:uses;not null;default:0" json:"uses"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
}

// TableName 指定表名
func (Invite) TableName() string {
	return "invites"
}

// Expired 在给定时刻是否已过期
func (i *Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Exhausted 是否已达到使用上限
func (i *Invite) Exhausted() bool {
	return i.MaxUses != nil && i.Uses >= *i.MaxUses
}
