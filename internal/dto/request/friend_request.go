package request

// SendFriendRequest 发送好友请求，user_id 与 handle（username#1234）二选一
// 使用位置:
//   - internal/handler/friend_handler.go: SendRequest
type SendFriendRequest struct {
	UserId string `json:"user_id"`
	Handle string `json:"handle" binding:"omitempty,handle"`
}

// FriendRequestAction 接受/拒绝好友请求
type FriendRequestAction struct {
	RequestId string `json:"request_id" binding:"required"`
}

// TargetUserRequest 针对另一个用户的操作：删除好友、拉黑、解除拉黑
type TargetUserRequest struct {
	UserId string `json:"user_id" binding:"required"`
}
