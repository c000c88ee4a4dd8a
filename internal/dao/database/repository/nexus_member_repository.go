// Package repository 提供数据访问层的具体实现
// 本文件实现 NexusMemberRepository 接口，处理社区成员相关的数据库操作
package repository

import (
	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

// nexusMemberRepository NexusMemberRepository 接口的实现
type nexusMemberRepository struct {
	db *gorm.DB // GORM 数据库实例
}

// NewNexusMemberRepository 创建 NexusMemberRepository 实例
func NewNexusMemberRepository(db *gorm.DB) NexusMemberRepository {
	return &nexusMemberRepository{db: db}
}

// Find 根据社区和用户查找成员关系
// 用于鉴权：检查用户是否在社区中以及角色
func (r *nexusMemberRepository) Find(nexusId, userId string) (*model.NexusMember, error) {
	var m model.NexusMember
	if err := r.db.Where("nexus_id = ? AND user_id = ?", nexusId, userId).First(&m).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询社区成员 nexus_id=%s user_id=%s", nexusId, userId)
	}
	return &m, nil
}

// FindWithProfiles 查询社区成员详细信息（包含用户基本资料）
// 通过 LEFT JOIN 关联 profiles 表获取用户名、标签和头像
func (r *nexusMemberRepository) FindWithProfiles(nexusId string) ([]MemberWithProfile, error) {
	var members []MemberWithProfile
	if err := r.db.Table("nexus_members").
		Select("nexus_members.*, profiles.username, profiles.tag, profiles.avatar_url, profiles.status").
		Joins("LEFT JOIN profiles ON profiles.id = nexus_members.user_id").
		Where("nexus_members.nexus_id = ?", nexusId).
		Order("nexus_members.joined_at ASC").
		Scan(&members).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询社区成员详情 nexus_id=%s", nexusId)
	}
	return members, nil
}

// Create 添加社区成员
func (r *nexusMemberRepository) Create(member *model.NexusMember) error {
	if err := r.db.Create(member).Error; err != nil {
		return wrapDBError(err, "创建社区成员")
	}
	return nil
}

// Delete 删除单个成员关系
func (r *nexusMemberRepository) Delete(nexusId, userId string) (int64, error) {
	res := r.db.Where("nexus_id = ? AND user_id = ?", nexusId, userId).Delete(&model.NexusMember{})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "删除社区成员 nexus_id=%s user_id=%s", nexusId, userId)
	}
	return res.RowsAffected, nil
}
