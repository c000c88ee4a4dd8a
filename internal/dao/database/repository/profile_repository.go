package repository

import (
	"nexus_chat_server/internal/model"

	"gorm.io/gorm"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建用户资料 Repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// FindById 按 ID 查找资料
func (r *profileRepository) FindById(id string) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户资料 id=%s", id)
	}
	return &p, nil
}

// FindByIdForUpdate 查找并锁定资料行
func (r *profileRepository) FindByIdForUpdate(id string) (*model.Profile, error) {
	var p model.Profile
	if err := forUpdate(r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrapDBErrorf(err, "锁定用户资料 id=%s", id)
	}
	return &p, nil
}

// FindByIds 按 ID 列表查找资料
func (r *profileRepository) FindByIds(ids []string) ([]model.Profile, error) {
	var profiles []model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("username ASC, tag ASC").Find(&profiles).Error; err != nil {
		return nil, wrapDBError(err, "批量查询用户资料")
	}
	return profiles, nil
}

// FindByHandle 按 username#tag 查找
func (r *profileRepository) FindByHandle(username, tag string) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.First(&p, "username = ? AND tag = ?", username, tag).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户 %s#%s", username, tag)
	}
	return &p, nil
}

// Create 创建资料
func (r *profileRepository) Create(profile *model.Profile) error {
	if err := r.db.Create(profile).Error; err != nil {
		return wrapDBError(err, "创建用户资料")
	}
	return nil
}

// Update 按字段更新资料
func (r *profileRepository) Update(id string, updates map[string]any) error {
	res := r.db.Model(&model.Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return wrapDBErrorf(res.Error, "更新用户资料 id=%s", id)
	}
	return nil
}
