package repository

import (
	"time"

	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type inviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository 创建邀请码 Repository
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

// FindByCode 按邀请码查找
func (r *inviteRepository) FindByCode(code string) (*model.Invite, error) {
	var inv model.Invite
	if err := r.db.First(&inv, "code = ?", code).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询邀请码 code=%s", code)
	}
	return &inv, nil
}

// FindByNexus 查询社区所有邀请码
func (r *inviteRepository) FindByNexus(nexusId string) ([]model.Invite, error) {
	var list []model.Invite
	if err := r.db.Where("nexus_id = ?", nexusId).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询邀请码 nexus_id=%s", nexusId)
	}
	return list, nil
}

// Create 创建邀请码
func (r *inviteRepository) Create(invite *model.Invite) error {
	if err := r.db.Create(invite).Error; err != nil {
		return wrapDBError(err, "创建邀请码")
	}
	return nil
}

// IncrementUses 条件自增，条件不满足时影响行数为 0
// 并发兑换只有满足 uses < max_uses 的那些能成功，uses 不会越过上限
func (r *inviteRepository) IncrementUses(id string, now time.Time) (int64, error) {
	res := r.db.Model(&model.Invite{}).
		Where("id = ?", id).
		Where("max_uses IS NULL OR uses < max_uses").
		Where("expires_at IS NULL OR expires_at > ?", now).
		UpdateColumn("uses", gorm.Expr("uses + 1"))
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "使用邀请码 id=%s", id)
	}
	return res.RowsAffected, nil
}
