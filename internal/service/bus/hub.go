package bus

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Subscription 一个订阅者
// 事件从 Events() 读取；通道关闭后 Err() 给出原因
type Subscription struct {
	id     uint64
	pred   Predicate
	ch     chan Event
	hub    *Hub
	mu     sync.RWMutex // 保护 closed 与通道关闭
	closed bool
	reason error
}

// Events 事件通道，订阅结束时被关闭
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Err 订阅结束的原因，未结束时为 nil
func (s *Subscription) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// deliver 非阻塞投递，缓冲区满则断开订阅者
func (s *Subscription) deliver(ev Event) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	select {
	case s.ch <- ev:
		s.mu.RUnlock()
		return
	default:
	}
	s.mu.RUnlock()
	zap.L().Warn("订阅者消费过慢，断开", zap.Uint64("subscription", s.id))
	s.hub.remove(s, ErrSlowConsumer)
}

func (s *Subscription) close(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.reason = reason
	close(s.ch)
	return true
}

// Hub 进程内的订阅表与分发器
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextId atomic.Uint64
	buffer int
}

// NewHub 创建 Hub，buffer 为每个订阅者的缓冲区大小
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer}
}

// Subscribe 注册订阅者
func (h *Hub) Subscribe(pred Predicate) *Subscription {
	s := &Subscription{
		id:   h.nextId.Add(1),
		pred: pred,
		ch:   make(chan Event, h.buffer),
		hub:  h,
	}
	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()
	return s
}

// Unsubscribe 取消订阅，可重复调用
func (h *Hub) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	h.remove(s, ErrClosed)
}

func (h *Hub) remove(s *Subscription, reason error) {
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
	s.close(reason)
}

// Dispatch 将事件投递给所有匹配的订阅者
// 先在读锁下拷贝订阅表，投递过程中不持有 Hub 锁
func (h *Hub) Dispatch(ev Event) {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if s.pred == nil || s.pred(ev) {
			s.deliver(ev)
		}
	}
}

// Len 当前订阅者数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close 断开全部订阅者
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*Subscription)
	h.mu.Unlock()
	for _, s := range subs {
		s.close(ErrClosed)
	}
}
