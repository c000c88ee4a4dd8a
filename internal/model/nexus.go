package model

import "time"

// 成员角色
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Nexus 社区
type Nexus struct {
	Id          string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	OwnerId     string    `gorm:"column:owner_id;type:char(36);not null;index" json:"owner_id"`
	Description string    `gorm:"column:description;type:varchar(1000)" json:"description"`
	IconUrl     string    `gorm:"column:icon_url;type:varchar(512)" json:"icon_url"`
	BannerUrl   string    `gorm:"column:banner_url;type:varchar(512)" json:"banner_url"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Nexus) TableName() string {
	return "nexuses"
}

// NexusMember 社区成员关系，(nexus_id, user_id) 唯一
type NexusMember struct {
	Id       string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	NexusId  string    `gorm:"column:nexus_id;type:char(36);not null;uniqueIndex:idx_member_nexus_user,priority:1" json:"nexus_id"`
	UserId   string    `gorm:"column:user_id;type:char(36);not null;uniqueIndex:idx_member_nexus_user,priority:2;index" json:"user_id"`
	Role     string    `gorm:"column:role;type:varchar(16);not null;default:member" json:"role"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
}

// TableName 指定表名
func (NexusMember) TableName() string {
	return "nexus_members"
}

// CanManage owner 与 admin 可以管理社区
func (m *NexusMember) CanManage() bool {
	return m != nil && (m.Role == RoleOwner || m.Role == RoleAdmin)
}
