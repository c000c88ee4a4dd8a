package request

// CreateProfileRequest 创建资料请求（身份提供方已认证，id 取自 Token）
// 使用位置:
//   - internal/handler/profile_handler.go: CreateProfile
type CreateProfileRequest struct {
	Username string `json:"username" binding:"required,max=32"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// UpdateProfileRequest 更新资料请求，未传的字段保持不变
// 使用位置:
//   - internal/handler/profile_handler.go: UpdateProfile
//   - internal/service/identity/service.go: UpdateProfile
type UpdateProfileRequest struct {
	Username     *string `json:"username" binding:"omitempty,max=32"`
	Bio          *string `json:"bio" binding:"omitempty,max=190"`
	Status       *string `json:"status" binding:"omitempty,profile_status"`
	CustomStatus *string `json:"custom_status" binding:"omitempty,max=128"`
	AvatarUrl    *string `json:"avatar_url"`
	BannerUrl    *string `json:"banner_url"`
}
