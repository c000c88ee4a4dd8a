package repository

import (
	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type friendshipRepository struct {
	db *gorm.DB
}

// NewFriendshipRepository 创建好友边 Repository
func NewFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

// FindById 按 ID 查找
func (r *friendshipRepository) FindById(id string) (*model.Friendship, error) {
	var f model.Friendship
	if err := r.db.First(&f, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询好友关系 id=%s", id)
	}
	return &f, nil
}

// FindBetween 查找两人之间的所有边（双向）
func (r *friendshipRepository) FindBetween(a, b string) ([]model.Friendship, error) {
	var edges []model.Friendship
	if err := r.db.
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Find(&edges).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询好友关系 %s<->%s", a, b)
	}
	return edges, nil
}

// FindOutgoing 查找用户发出的指定状态的边
func (r *friendshipRepository) FindOutgoing(userId, status string) ([]model.Friendship, error) {
	var edges []model.Friendship
	if err := r.db.Where("user_id = ? AND status = ?", userId, status).
		Order("created_at ASC").Find(&edges).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询好友关系 user_id=%s", userId)
	}
	return edges, nil
}

// FindIncoming 查找指向用户的指定状态的边
func (r *friendshipRepository) FindIncoming(userId, status string) ([]model.Friendship, error) {
	var edges []model.Friendship
	if err := r.db.Where("friend_id = ? AND status = ?", userId, status).
		Order("created_at ASC").Find(&edges).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询好友关系 friend_id=%s", userId)
	}
	return edges, nil
}

// Create 创建一条有向边
func (r *friendshipRepository) Create(f *model.Friendship) error {
	if err := r.db.Create(f).Error; err != nil {
		return wrapDBError(err, "创建好友关系")
	}
	return nil
}

// TransitionStatus 带状态守卫的更新，并发下只有一个调用方能成功
func (r *friendshipRepository) TransitionStatus(id, from, to string) (int64, error) {
	res := r.db.Model(&model.Friendship{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "更新好友关系状态 id=%s", id)
	}
	return res.RowsAffected, nil
}

// DeleteByIds 批量删除
func (r *friendshipRepository) DeleteByIds(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("id IN ?", ids).Delete(&model.Friendship{}).Error; err != nil {
		return wrapDBError(err, "删除好友关系")
	}
	return nil
}
