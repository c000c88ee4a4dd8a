// Package websocket 实时网关
// 每个连接按主题订阅变更总线，事件以 JSON 帧推送给客户端
package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nexus_chat_server/pkg/constants"
)

// Manager 管理所有在线连接
type Manager struct {
	subscriber Subscriber
	auth       Authorizer
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewManager 创建连接管理器
func NewManager(subscriber Subscriber, auth Authorizer) *Manager {
	return &Manager{
		subscriber: subscriber,
		auth:       auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 跨域由 cors 中间件与 JWT 控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// Serve 将 HTTP 连接升级为 WebSocket，并启动读写协程
// userId 已由 JWT 中间件校验
func (m *Manager) Serve(w http.ResponseWriter, r *http.Request, userId string) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := newClient(m, conn, userId, constants.CHANNEL_SIZE)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.clients[client] = struct{}{}
	m.mu.Unlock()

	zap.L().Info("ws 连接建立", zap.String("user_id", userId))
	client.watchMembership()
	go client.writePump()
	go client.readPump()
	return nil
}

func (m *Manager) remove(c *Client) {
	m.mu.Lock()
	delete(m.clients, c)
	m.mu.Unlock()
}

// Len 当前在线连接数
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Close 断开所有连接，之后的升级请求直接关闭
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
