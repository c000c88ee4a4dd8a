package respond

// UploadRespond 上传资源后的公开地址
type UploadRespond struct {
	Url string `json:"url"`
}

// RedeemInviteRespond 兑换邀请码结果
type RedeemInviteRespond struct {
	NexusId string `json:"nexus_id"`
	Role    string `json:"role"`
}

// WsEvent 推送给客户端的帧
// type 为 event 时携带事件；为 resync 时客户端需重新拉取该主题的数据；为 error 时 msg 说明原因
type WsEvent struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Event any    `json:"event,omitempty"`
	Msg   string `json:"msg,omitempty"`
}
