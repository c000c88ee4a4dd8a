// Package identity 用户资料目录
// 负责资料的创建、修改与查询，(username, tag) 全局唯一
package identity

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus_chat_server/internal/dao/database/repository"
	myredis "nexus_chat_server/internal/dao/redis"
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/random"
	"nexus_chat_server/pkg/util/validate"
)

// Service 用户资料业务逻辑实现
type Service struct {
	repos    *repository.Repositories
	cache    myredis.AsyncCacheService // 可为 nil，此时直接读库
	notifier *bus.Notifier
	newTag   func() string
}

// NewService 构造函数
func NewService(repos *repository.Repositories, cache myredis.AsyncCacheService, notifier *bus.Notifier) *Service {
	return &Service{repos: repos, cache: cache, notifier: notifier, newTag: random.GetTag}
}

// WithTagGenerator 替换标签生成器
func (s *Service) WithTagGenerator(gen func() string) *Service {
	s.newTag = gen
	return s
}

func profileEvent(kind bus.Kind, p *model.Profile) bus.Event {
	return bus.NewEvent(kind, bus.EntityProfile, p.Id, p, bus.ProfileTopic(p.Id), bus.UserTopic(p.Id))
}

func cacheKey(id string) string {
	return constants.PROFILE_CACHE_KEY_PREFIX + id
}

// CreateProfile 创建资料并随机分配 4 位标签
// id 为空时生成新的 UUID；标签冲突时换一个重试，超过上限返回 TagExhausted
func (s *Service) CreateProfile(ctx context.Context, id, username, email string) (*model.Profile, error) {
	username, err := validate.Username(username)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	} else if _, err := s.repos.WithContext(ctx).Profile.FindById(id); err == nil {
		return nil, errorx.New(errorx.CodeConflict, "该用户资料已存在")
	} else if !errorx.IsNotFound(err) {
		zap.L().Error("查询用户资料失败", zap.Error(err), zap.String("id", id))
		return nil, errorx.ErrServerBusy
	}

	for attempt := 0; attempt < constants.TAG_MAX_ATTEMPTS; attempt++ {
		profile := &model.Profile{
			Id:       id,
			Username: username,
			Tag:      s.newTag(),
			Email:    email,
			Status:   model.ProfileStatusOnline,
		}
		err := s.notifier.Commit(ctx, []string{bus.ProfileTopic(id)}, func() ([]bus.Event, error) {
			if err := s.repos.WithContext(ctx).Profile.Create(profile); err != nil {
				return nil, err
			}
			return []bus.Event{profileEvent(bus.Inserted, profile)}, nil
		})
		if err == nil {
			return profile, nil
		}
		if !errorx.IsConflict(err) {
			zap.L().Error("创建用户资料失败", zap.Error(err), zap.String("id", id))
			return nil, errorx.ErrServerBusy
		}
		// 冲突可能来自并发创建同一 id
		if _, err := s.repos.WithContext(ctx).Profile.FindById(id); err == nil {
			return nil, errorx.New(errorx.CodeConflict, "该用户资料已存在")
		}
	}
	zap.L().Warn("标签分配重试耗尽", zap.String("username", username))
	return nil, errorx.ErrTagExhausted
}

// UpdateProfile 按字段更新资料
// 修改用户名时优先保留原标签；新用户名下原标签已被占用则重新随机，规则同 CreateProfile
func (s *Service) UpdateProfile(ctx context.Context, id string, req request.UpdateProfileRequest) (*model.Profile, error) {
	updates := make(map[string]any)
	var newName string
	if req.Username != nil {
		name, err := validate.Username(*req.Username)
		if err != nil {
			return nil, err
		}
		newName = name
	}
	if req.Bio != nil {
		if err := validate.MaxLen("个人简介", *req.Bio, constants.BIO_MAX_LEN); err != nil {
			return nil, err
		}
		updates["bio"] = *req.Bio
	}
	if req.Status != nil {
		if !model.ValidProfileStatus(*req.Status) {
			return nil, errorx.New(errorx.CodeInvalidParam, "在线状态不合法")
		}
		updates["status"] = *req.Status
	}
	if req.CustomStatus != nil {
		if err := validate.MaxLen("自定义状态", *req.CustomStatus, constants.CUSTOM_STATUS_MAX_LEN); err != nil {
			return nil, err
		}
		updates["custom_status"] = *req.CustomStatus
	}
	if req.AvatarUrl != nil {
		updates["avatar_url"] = *req.AvatarUrl
	}
	if req.BannerUrl != nil {
		updates["banner_url"] = *req.BannerUrl
	}

	current, err := s.repos.WithContext(ctx).Profile.FindById(id)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "用户资料不存在")
		}
		zap.L().Error("查询用户资料失败", zap.Error(err), zap.String("id", id))
		return nil, errorx.ErrServerBusy
	}

	renaming := newName != "" && newName != current.Username
	attempts := 1
	if renaming {
		attempts = constants.TAG_MAX_ATTEMPTS
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if renaming {
			updates["username"] = newName
			if attempt == 0 {
				updates["tag"] = current.Tag
			} else {
				updates["tag"] = s.newTag()
			}
		}
		updated, err := s.applyUpdate(ctx, id, updates)
		if err == nil {
			return updated, nil
		}
		if !errorx.IsConflict(err) || !renaming {
			if errorx.IsNotFound(err) {
				return nil, errorx.New(errorx.CodeNotFound, "用户资料不存在")
			}
			zap.L().Error("更新用户资料失败", zap.Error(err), zap.String("id", id))
			return nil, errorx.ErrServerBusy
		}
	}
	return nil, errorx.ErrTagExhausted
}

func (s *Service) applyUpdate(ctx context.Context, id string, updates map[string]any) (*model.Profile, error) {
	var updated *model.Profile
	err := s.notifier.Commit(ctx, []string{bus.ProfileTopic(id)}, func() ([]bus.Event, error) {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if len(updates) > 0 {
				if err := tx.Profile.Update(id, updates); err != nil {
					return err
				}
			}
			p, err := tx.Profile.FindById(id)
			updated = p
			return err
		})
		if err != nil {
			return nil, err
		}
		// 仍持有资料键锁，回填与写穿互斥，缓存不会被旧快照覆盖
		s.writeThrough(ctx, updated)
		return []bus.Event{profileEvent(bus.Updated, updated)}, nil
	})
	return updated, err
}

// writeThrough 同步写入已提交的资料；写入失败则删除缓存，删除也失败时交给后台重试
func (s *Service) writeThrough(ctx context.Context, p *model.Profile) {
	if s.cache == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	raw, err := json.Marshal(p)
	if err == nil {
		if err = s.cache.Set(ctx, cacheKey(p.Id), string(raw), constants.PROFILE_CACHE_TTL); err == nil {
			return
		}
	}
	zap.L().Warn("写入资料缓存失败，改为删除", zap.Error(err), zap.String("id", p.Id))
	if err := s.cache.Delete(ctx, cacheKey(p.Id)); err == nil {
		return
	}
	id := p.Id
	s.cache.SubmitTask(func() {
		if err := s.cache.Delete(context.Background(), cacheKey(id)); err != nil {
			zap.L().Error("删除资料缓存失败", zap.Error(err), zap.String("id", id))
		}
	})
}

// GetProfile 查询资料，Redis 读穿透缓存
// 未命中时在资料键锁内读库并回填，与 UpdateProfile 的写穿串行
func (s *Service) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey(id)); err == nil && raw != "" {
			var p model.Profile
			if err := json.Unmarshal([]byte(raw), &p); err == nil {
				return &p, nil
			}
			zap.L().Error("Unmarshal profile cache error", zap.String("id", id))
		}
	}

	var p *model.Profile
	load := func() ([]bus.Event, error) {
		found, err := s.repos.WithContext(ctx).Profile.FindById(id)
		if err != nil {
			return nil, err
		}
		p = found
		if raw, err := json.Marshal(found); err == nil {
			if err := s.cache.Set(context.WithoutCancel(ctx), cacheKey(id), string(raw), constants.PROFILE_CACHE_TTL); err != nil {
				zap.L().Warn("回填资料缓存失败", zap.Error(err), zap.String("id", id))
			}
		}
		return nil, nil
	}
	var err error
	if s.cache != nil {
		err = s.notifier.Commit(ctx, []string{bus.ProfileTopic(id)}, load)
	} else {
		p, err = s.repos.WithContext(ctx).Profile.FindById(id)
	}
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "用户资料不存在")
		}
		zap.L().Error("查询用户资料失败", zap.Error(err), zap.String("id", id))
		return nil, errorx.ErrServerBusy
	}
	return p, nil
}

// FindByHandle 按 username#tag 查找
func (s *Service) FindByHandle(ctx context.Context, username, tag string) (*model.Profile, error) {
	p, err := s.repos.WithContext(ctx).Profile.FindByHandle(username, tag)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.Newf(errorx.CodeNotFound, "用户 %s#%s 不存在", username, tag)
		}
		zap.L().Error("查询用户失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return p, nil
}
