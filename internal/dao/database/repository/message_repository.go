package repository

import (
	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建频道消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// FindById 按 ID 查找消息
func (r *messageRepository) FindById(id string) (*model.Message, error) {
	var m model.Message
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 id=%s", id)
	}
	return &m, nil
}

// FindByChannel 查询频道消息，结果按 (created_at, seq) 正序
func (r *messageRepository) FindByChannel(channelId string, beforeSeq int64, limit int) ([]model.Message, error) {
	var list []model.Message
	if err := page(r.db.Where("channel_id = ?", channelId), beforeSeq, limit).Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询频道消息 channel_id=%s", channelId)
	}
	if limit > 0 {
		reverse(list)
	}
	return list, nil
}

// FindReplies 查找回复指定消息的消息
func (r *messageRepository) FindReplies(messageId string) ([]model.Message, error) {
	var list []model.Message
	if err := r.db.Where("reply_to = ?", messageId).Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询回复消息 reply_to=%s", messageId)
	}
	return list, nil
}

// Create 保存消息
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "保存消息")
	}
	return nil
}

// UpdateContent 修改消息内容
func (r *messageRepository) UpdateContent(id, content string) error {
	res := r.db.Model(&model.Message{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "edited": true})
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "编辑消息 id=%s", id)
	}
	return nil
}

// ClearReplyTo 清空对被删除消息的引用
func (r *messageRepository) ClearReplyTo(messageId string) error {
	if err := r.db.Model(&model.Message{}).Where("reply_to = ?", messageId).
		Update("reply_to", nil).Error; err != nil {
		return wrapDBErrorf(err, "清理回复引用 reply_to=%s", messageId)
	}
	return nil
}

// DeleteById 删除消息
func (r *messageRepository) DeleteById(id string) error {
	if err := r.db.Where("id = ?", id).Delete(&model.Message{}).Error; err != nil {
		return wrapDBErrorf(err, "删除消息 id=%s", id)
	}
	return nil
}

// DeleteByChannel 删除频道下所有消息
func (r *messageRepository) DeleteByChannel(channelId string) error {
	if err := r.db.Where("channel_id = ?", channelId).Delete(&model.Message{}).Error; err != nil {
		return wrapDBErrorf(err, "删除频道消息 channel_id=%s", channelId)
	}
	return nil
}
