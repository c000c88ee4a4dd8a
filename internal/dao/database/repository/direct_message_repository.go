package repository

import (
	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type directMessageRepository struct {
	db *gorm.DB
}

// NewDirectMessageRepository 创建私信 Repository
func NewDirectMessageRepository(db *gorm.DB) DirectMessageRepository {
	return &directMessageRepository{db: db}
}

// FindById 按 ID 查找私信
func (r *directMessageRepository) FindById(id string) (*model.DirectMessage, error) {
	var dm model.DirectMessage
	if err := r.db.First(&dm, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询私信 id=%s", id)
	}
	return &dm, nil
}

// FindByPair 查询会话消息，结果按 (created_at, seq) 正序
func (r *directMessageRepository) FindByPair(pairKey string, beforeSeq int64, limit int) ([]model.DirectMessage, error) {
	var list []model.DirectMessage
	if err := page(r.db.Where("pair_key = ?", pairKey), beforeSeq, limit).Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询私信 pair_key=%s", pairKey)
	}
	if limit > 0 {
		reverse(list)
	}
	return list, nil
}

// Create 保存私信
func (r *directMessageRepository) Create(dm *model.DirectMessage) error {
	if err := r.db.Create(dm).Error; err != nil {
		return wrapDBError(err, "保存私信")
	}
	return nil
}

// UpdateContent 修改私信内容
func (r *directMessageRepository) UpdateContent(id, content string) error {
	res := r.db.Model(&model.DirectMessage{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "edited": true})
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "编辑私信 id=%s", id)
	}
	return nil
}
