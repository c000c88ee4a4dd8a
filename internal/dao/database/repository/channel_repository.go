package repository

import (
	"database/sql"

	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建频道 Repository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// FindById 按 ID 查找频道
func (r *channelRepository) FindById(id string) (*model.Channel, error) {
	var c model.Channel
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询频道 id=%s", id)
	}
	return &c, nil
}

// FindByNexus 查询社区下所有频道，按分类、位置排序
func (r *channelRepository) FindByNexus(nexusId string) ([]model.Channel, error) {
	var list []model.Channel
	if err := r.db.Where("nexus_id = ?", nexusId).
		Order("category ASC, position ASC").
		Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询频道列表 nexus_id=%s", nexusId)
	}
	return list, nil
}

// MaxPosition 查询分类内当前最大位置
func (r *channelRepository) MaxPosition(nexusId, category string) (int, bool, error) {
	var max sql.NullInt64
	err := r.db.Model(&model.Channel{}).
		Select("MAX(position)").
		Where("nexus_id = ? AND category = ?", nexusId, category).
		Row().Scan(&max)
	if err != nil {
		return 0, false, wrapDBErrorf(err, "查询频道位置 nexus_id=%s", nexusId)
	}
	return int(max.Int64), max.Valid, nil
}

// Create 创建频道
func (r *channelRepository) Create(channel *model.Channel) error {
	if err := r.db.Create(channel).Error; err != nil {
		return wrapDBError(err, "创建频道")
	}
	return nil
}

// DeleteById 删除频道
func (r *channelRepository) DeleteById(id string) error {
	if err := r.db.Where("id = ?", id).Delete(&model.Channel{}).Error; err != nil {
		return wrapDBErrorf(err, "删除频道 id=%s", id)
	}
	return nil
}
