package request

import "time"

// CreateNexusRequest 创建社区请求
// 使用位置:
//   - internal/handler/nexus_handler.go: CreateNexus
//   - internal/service/nexus/service.go: CreateNexus
type CreateNexusRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
	IconUrl     string `json:"icon_url"`
	BannerUrl   string `json:"banner_url"`
}

// UpdateNexusRequest 更新社区资料，未传的字段保持不变
type UpdateNexusRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	IconUrl     *string `json:"icon_url"`
	BannerUrl   *string `json:"banner_url"`
}

// AddMemberRequest 添加社区成员
type AddMemberRequest struct {
	UserId string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,member_role"`
}

// CreateInviteRequest 创建邀请码，max_uses 为空表示不限次数，expires_at 为空表示永不过期
type CreateInviteRequest struct {
	MaxUses   *int       `json:"max_uses" binding:"omitempty,min=1"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// RedeemInviteRequest 使用邀请码加入社区
type RedeemInviteRequest struct {
	Code string `json:"code" binding:"required,max=16"`
}
