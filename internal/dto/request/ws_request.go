package request

// WsFrame 客户端通过 WebSocket 发送的控制帧
// action: subscribe / unsubscribe；topic 形如 channel:<id>、nexus:<id>、dm:<a>:<b>
type WsFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}
