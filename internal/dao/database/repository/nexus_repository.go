package repository

import (
	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type nexusRepository struct {
	db *gorm.DB
}

// NewNexusRepository 创建社区 Repository
func NewNexusRepository(db *gorm.DB) NexusRepository {
	return &nexusRepository{db: db}
}

// FindById 按 ID 查找社区
func (r *nexusRepository) FindById(id string) (*model.Nexus, error) {
	var n model.Nexus
	if err := r.db.First(&n, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询社区 id=%s", id)
	}
	return &n, nil
}

// FindByMember 查找用户加入的社区，按加入时间排序
func (r *nexusRepository) FindByMember(userId string) ([]model.Nexus, error) {
	var list []model.Nexus
	if err := r.db.Select("nexuses.*").
		Joins("JOIN nexus_members ON nexus_members.nexus_id = nexuses.id").
		Where("nexus_members.user_id = ?", userId).
		Order("nexus_members.joined_at ASC").
		Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户社区 user_id=%s", userId)
	}
	return list, nil
}

// Create 创建社区
func (r *nexusRepository) Create(nexus *model.Nexus) error {
	if err := r.db.Create(nexus).Error; err != nil {
		return wrapDBError(err, "创建社区")
	}
	return nil
}

// Update 按字段更新社区
func (r *nexusRepository) Update(id string, updates map[string]any) error {
	res := r.db.Model(&model.Nexus{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "更新社区 id=%s", id)
	}
	return nil
}
