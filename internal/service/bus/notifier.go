package bus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nexus_chat_server/pkg/constants"
)

// Notifier 总线入口：服务层通过 Commit 写库并发布，网关通过 Subscribe 接收
type Notifier struct {
	hub    *Hub
	broker Broker
	locks  *KeyLocker
	now    func() time.Time
}

// NewNotifier 创建通知器
// broker 为 nil 时使用单机代理
func NewNotifier(hub *Hub, broker Broker, lockStripes int) *Notifier {
	if broker == nil {
		broker = NewLocalBroker(hub)
	}
	return &Notifier{
		hub:    hub,
		broker: broker,
		locks:  NewKeyLocker(lockStripes),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewLocalNotifier 单机模式的便捷构造
func NewLocalNotifier(buffer int) *Notifier {
	return NewNotifier(NewHub(buffer), nil, constants.LOCK_STRIPES)
}

// Commit 在实体键锁内执行 fn，fn 成功后发布其返回的事件
// fn 负责执行数据库事务；返回错误时不发布任何事件
// 锁覆盖提交与发布，同一实体的事件因此按提交顺序进入代理；发布失败只记录日志，不影响已提交的变更
func (n *Notifier) Commit(ctx context.Context, keys []string, fn func() ([]Event, error)) error {
	unlock := n.locks.Lock(keys...)
	defer unlock()

	events, err := fn()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	at := n.now()
	for i := range events {
		events[i].CommittedAt = at
	}
	if err := n.broker.Publish(context.WithoutCancel(ctx), events); err != nil {
		zap.L().Error("发布变更事件失败", zap.Int("events", len(events)), zap.Error(err))
	}
	return nil
}

// Subscribe 订阅匹配 pred 的事件
func (n *Notifier) Subscribe(pred Predicate) *Subscription {
	return n.hub.Subscribe(pred)
}

// Unsubscribe 取消订阅，可重复调用
func (n *Notifier) Unsubscribe(s *Subscription) {
	n.hub.Unsubscribe(s)
}

// Start 在后台启动代理消费循环，立即返回；ctx 取消时循环退出
func (n *Notifier) Start(ctx context.Context) {
	go n.broker.Start(ctx)
}

// Close 关闭代理并断开所有订阅者
func (n *Notifier) Close() {
	n.broker.Close()
	n.hub.Close()
}
