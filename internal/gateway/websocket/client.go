package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
)

// 推送帧类型
const (
	FrameEvent        = "event"
	FrameResync       = "resync"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameError        = "error"
	FrameRevoked      = "revoked"
)

const authorizeTimeout = 5 * time.Second

// Client 一个 WebSocket 连接
// 每个已订阅主题对应一个总线订阅和一个转发协程，所有输出经 send 交给唯一的写协程
type Client struct {
	manager *Manager
	conn    *websocket.Conn
	userId  string
	send    chan []byte
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	subs   map[string]*bus.Subscription
	scopes map[string]string // 主题 -> 所属社区，仅 nexus/channel 主题
	watch  *bus.Subscription

	// revoked 在总线分发协程里写入，后续事件的谓词据此同步过滤
	revokedMu   sync.RWMutex
	revoked     map[string]bool
	revocations atomic.Uint64
}

func newClient(m *Manager, conn *websocket.Conn, userId string, buffer int) *Client {
	return &Client{
		manager: m,
		conn:    conn,
		userId:  userId,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
		subs:    make(map[string]*bus.Subscription),
		scopes:  make(map[string]string),
		revoked: make(map[string]bool),
	}
}

// enqueue 非阻塞写入发送队列，队列满说明客户端读得太慢，直接断开
func (c *Client) enqueue(frame respond.WsEvent) {
	data, err := json.Marshal(frame)
	if err != nil {
		zap.L().Error("ws 帧序列化失败", zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		zap.L().Warn("ws 客户端发送队列已满，断开", zap.String("user_id", c.userId))
		go c.close()
	}
}

// close 幂等：取消全部订阅并关闭连接
func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]*bus.Subscription)
		c.scopes = make(map[string]string)
		watch := c.watch
		c.watch = nil
		c.mu.Unlock()
		if c.manager != nil {
			for _, s := range subs {
				c.manager.subscriber.Unsubscribe(s)
			}
			if watch != nil {
				c.manager.subscriber.Unsubscribe(watch)
			}
			c.manager.remove(c)
		}
		if c.conn != nil {
			_ = c.conn.Close()
		}
		zap.L().Info("ws 连接关闭", zap.String("user_id", c.userId))
	})
}

func (c *Client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(constants.WS_MAX_MESSAGE_SIZE)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("ws 读取失败", zap.String("user_id", c.userId), zap.Error(err))
			}
			return
		}
		var frame request.WsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.enqueue(respond.WsEvent{Type: FrameError, Msg: "帧格式错误"})
			continue
		}
		c.handle(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WS_PING_PERIOD)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(constants.WS_WRITE_WAIT))
			return
		}
	}
}

func (c *Client) handle(frame request.WsFrame) {
	switch frame.Action {
	case "subscribe":
		c.subscribe(frame.Topic)
	case "unsubscribe":
		c.unsubscribe(frame.Topic)
	default:
		c.enqueue(respond.WsEvent{Type: FrameError, Topic: frame.Topic, Msg: "未知操作"})
	}
}

func (c *Client) subscribe(topic string) {
	c.mu.Lock()
	_, exists := c.subs[topic]
	c.mu.Unlock()
	if exists {
		c.enqueue(respond.WsEvent{Type: FrameSubscribed, Topic: topic})
		return
	}

	before := c.revocations.Load()
	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	scope, err := c.manager.auth.Authorize(ctx, c.userId, topic)
	cancel()
	if err != nil {
		msg := errorx.ErrServerBusy.Msg
		var codeErr *errorx.CodeError
		if errors.As(err, &codeErr) {
			msg = codeErr.Msg
		}
		c.enqueue(respond.WsEvent{Type: FrameError, Topic: topic, Msg: msg})
		return
	}

	if scope != "" && c.isRevoked(scope) {
		// 鉴权期间发生过撤销，无法确认鉴权结果是否在撤销之后
		if c.revocations.Load() != before {
			c.enqueue(respond.WsEvent{Type: FrameError, Topic: topic, Msg: "你已不是该社区成员"})
			return
		}
		c.setRevoked(scope, false)
	}
	sub := c.manager.subscriber.Subscribe(c.scoped(topic, scope))
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		c.manager.subscriber.Unsubscribe(sub)
		return
	default:
	}
	// 鉴权期间同一主题已被并发订阅
	if _, ok := c.subs[topic]; ok {
		c.mu.Unlock()
		c.manager.subscriber.Unsubscribe(sub)
		c.enqueue(respond.WsEvent{Type: FrameSubscribed, Topic: topic})
		return
	}
	c.subs[topic] = sub
	if scope != "" {
		c.scopes[topic] = scope
	}
	c.mu.Unlock()

	go c.forward(topic, sub)
	c.enqueue(respond.WsEvent{Type: FrameSubscribed, Topic: topic})
	// 撤销可能发生在登记之前，revokeLoop 当时看不到这个主题
	if scope != "" && c.isRevoked(scope) {
		c.revoke(scope)
	}
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	delete(c.scopes, topic)
	c.mu.Unlock()
	if ok {
		c.manager.subscriber.Unsubscribe(sub)
	}
	c.enqueue(respond.WsEvent{Type: FrameUnsubscribed, Topic: topic})
}

// forward 把订阅的事件转成推送帧
// 订阅因消费过慢被总线断开时通知客户端重新拉取该主题
func (c *Client) forward(topic string, sub *bus.Subscription) {
	for ev := range sub.Events() {
		c.enqueue(respond.WsEvent{Type: FrameEvent, Topic: topic, Event: ev})
	}
	c.mu.Lock()
	if c.subs[topic] == sub {
		delete(c.subs, topic)
		delete(c.scopes, topic)
	}
	c.mu.Unlock()
	if errors.Is(sub.Err(), bus.ErrSlowConsumer) {
		c.enqueue(respond.WsEvent{Type: FrameResync, Topic: topic})
	}
}

func (c *Client) setRevoked(nexusId string, v bool) {
	c.revokedMu.Lock()
	defer c.revokedMu.Unlock()
	if v {
		c.revoked[nexusId] = true
		c.revocations.Add(1)
	} else {
		delete(c.revoked, nexusId)
	}
}

func (c *Client) isRevoked(nexusId string) bool {
	c.revokedMu.RLock()
	defer c.revokedMu.RUnlock()
	return c.revoked[nexusId]
}

// scoped 社区范围的主题在成员资格被撤销后不再匹配任何事件
func (c *Client) scoped(topic, scope string) bus.Predicate {
	match := bus.TopicIs(topic)
	if scope == "" {
		return match
	}
	return func(ev bus.Event) bool {
		return match(ev) && !c.isRevoked(scope)
	}
}

// watchMembership 监听本人被移出社区的事件
// 谓词在分发协程内同步标记撤销，之后同一社区的事件不会再投递；退订和通知由 revokeLoop 完成
func (c *Client) watchMembership() {
	self := bus.UserTopic(c.userId)
	sub := c.manager.subscriber.Subscribe(func(ev bus.Event) bool {
		if ev.EntityType != bus.EntityNexusMember || ev.Kind != bus.Deleted || !ev.HasTopic(self) {
			return false
		}
		var m model.NexusMember
		if err := ev.Decode(&m); err != nil || m.UserId != c.userId {
			return false
		}
		c.setRevoked(m.NexusId, true)
		return true
	})
	c.mu.Lock()
	c.watch = sub
	c.mu.Unlock()
	go c.revokeLoop(sub)
}

func (c *Client) revokeLoop(sub *bus.Subscription) {
	for ev := range sub.Events() {
		var m model.NexusMember
		if err := ev.Decode(&m); err != nil {
			continue
		}
		c.revoke(m.NexusId)
	}
	// 监听本身因过慢被断开时无法再判断撤销，断开连接让客户端重连后重新鉴权
	if errors.Is(sub.Err(), bus.ErrSlowConsumer) {
		c.close()
	}
}

// revoke 退订某社区下的全部 nexus/channel 主题并逐个通知客户端
// 撤销标记已被新的订阅清除时说明用户又加入了该社区，不再处理
func (c *Client) revoke(nexusId string) {
	if !c.isRevoked(nexusId) {
		return
	}
	c.mu.Lock()
	var topics []string
	var subs []*bus.Subscription
	for topic, scope := range c.scopes {
		if scope != nexusId {
			continue
		}
		topics = append(topics, topic)
		subs = append(subs, c.subs[topic])
		delete(c.subs, topic)
		delete(c.scopes, topic)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		c.manager.subscriber.Unsubscribe(sub)
	}
	for _, topic := range topics {
		c.enqueue(respond.WsEvent{Type: FrameRevoked, Topic: topic, Msg: "你已不是该社区成员"})
	}
	if len(topics) > 0 {
		zap.L().Info("成员资格撤销，退订社区主题", zap.String("user_id", c.userId),
			zap.String("nexus", nexusId), zap.Int("topics", len(topics)))
	}
}
