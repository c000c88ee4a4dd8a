// Package model 定义数据库实体模型
// 所有实体以 UUID 字符串为主键，行物理删除，唯一索引因此始终精确
package model

import "time"

// 在线状态
const (
	ProfileStatusOnline    = "online"
	ProfileStatusIdle      = "idle"
	ProfileStatusDnd       = "dnd"
	ProfileStatusInvisible = "invisible"
)

// ValidProfileStatus 判断状态是否在枚举内
func ValidProfileStatus(s string) bool {
	switch s {
	case ProfileStatusOnline, ProfileStatusIdle, ProfileStatusDnd, ProfileStatusInvisible:
		return true
	}
	return false
}

// Profile 用户资料
// 对应数据库 profiles 表，(username, tag) 全局唯一，如 "alice#0427"
type Profile struct {
	// Id 与身份提供方的用户 ID 一致，创建后不可修改
	Id string `gorm:"column:id;primaryKey;type:char(36)" json:"id"`

	Username string `gorm:"column:username;type:varchar(32);not null;uniqueIndex:idx_profile_handle,priority:1" json:"username"`

	// Tag 4 位数字标签，0001-9999
	Tag string `gorm:"column:tag;type:char(4);not null;uniqueIndex:idx_profile_handle,priority:2" json:"tag"`

	Email        string    `gorm:"column:email;type:varchar(255)" json:"email"`
	Status       string    `gorm:"column:status;type:varchar(16);not null;default:online" json:"status"`
	CustomStatus string    `gorm:"column:custom_status;type:varchar(128)" json:"custom_status"`
	AvatarUrl    string    `gorm:"column:avatar_url;type:varchar(512)" json:"avatar_url"`
	BannerUrl    string    `gorm:"column:banner_url;type:varchar(512)" json:"banner_url"`
	Bio          string    `gorm:"column:bio;type:varchar(190)" json:"bio"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// Handle 返回 "username#tag"
func (p *Profile) Handle() string {
	return p.Username + "#" + p.Tag
}
