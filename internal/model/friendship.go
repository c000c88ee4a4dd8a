package model

import "time"

// 好友边状态
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipBlocked  = "blocked"
)

// Friendship 有向好友边
// 接受好友请求后两个方向各有一行 accepted 记录
type Friendship struct {
	Id        string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	UserId    string    `gorm:"column:user_id;type:char(36);not null;uniqueIndex:idx_friendship_pair,priority:1;check:chk_friendship_self,user_id <> friend_id" json:"user_id"`
	FriendId  string    `gorm:"column:friend_id;type:char(36);not null;uniqueIndex:idx_friendship_pair,priority:2;index" json:"friend_id"`
	Status    string    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 指定表名
func (Friendship) TableName() string {
	return "friendships"
}
