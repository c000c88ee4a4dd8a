package bus

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "subscription closed: %v", s.Err())
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertNoEvent(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCommitPublishesOnlyAfterSuccess(t *testing.T) {
	n := NewLocalNotifier(8)
	sub := n.Subscribe(TopicIs(ChannelTopic("c1")))
	defer n.Unsubscribe(sub)

	boom := errors.New("rollback")
	err := n.Commit(context.Background(), []string{"m1"}, func() ([]Event, error) {
		return []Event{NewEvent(Inserted, EntityMessage, "m1", nil, ChannelTopic("c1"))}, boom
	})
	assert.ErrorIs(t, err, boom)
	assertNoEvent(t, sub)

	err = n.Commit(context.Background(), []string{"m1"}, func() ([]Event, error) {
		return []Event{NewEvent(Inserted, EntityMessage, "m1", map[string]string{"content": "hi"}, ChannelTopic("c1"))}, nil
	})
	require.NoError(t, err)
	ev := recv(t, sub)
	assert.Equal(t, Inserted, ev.Kind)
	assert.Equal(t, "m1", ev.EntityId)
	assert.False(t, ev.CommittedAt.IsZero())

	var snap map[string]string
	require.NoError(t, ev.Decode(&snap))
	assert.Equal(t, "hi", snap["content"])
}

func TestPredicateFiltersTopics(t *testing.T) {
	n := NewLocalNotifier(8)
	sub := n.Subscribe(AnyTopic(UserTopic("a"), UserTopic("b")))
	defer n.Unsubscribe(sub)

	_ = n.Commit(context.Background(), nil, func() ([]Event, error) {
		return []Event{
			NewEvent(Updated, EntityProfile, "x", nil, ProfileTopic("x")),
			NewEvent(Inserted, EntityFriendship, "f1", nil, UserTopic("b"), UserTopic("c")),
		}, nil
	})
	ev := recv(t, sub)
	assert.Equal(t, "f1", ev.EntityId)
	assertNoEvent(t, sub)
}

func TestSameEntityEventsArriveInCommitOrder(t *testing.T) {
	n := NewLocalNotifier(1024)
	sub := n.Subscribe(TopicIs(NexusTopic("n1")))
	defer n.Unsubscribe(sub)

	var (
		mu      sync.Mutex
		version int
		wg      sync.WaitGroup
	)
	const writers = 200
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = n.Commit(context.Background(), []string{"nexus:n1"}, func() ([]Event, error) {
				mu.Lock()
				version++
				v := version
				mu.Unlock()
				return []Event{NewEvent(Updated, EntityNexus, "n1", map[string]int{"v": v}, NexusTopic("n1"))}, nil
			})
		}()
	}
	wg.Wait()

	prev := 0
	for i := 0; i < writers; i++ {
		var snap map[string]int
		require.NoError(t, recv(t, sub).Decode(&snap))
		assert.Equal(t, prev+1, snap["v"])
		prev = snap["v"]
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	hub := NewHub(1)
	n := NewNotifier(hub, nil, 4)
	slow := n.Subscribe(nil)
	fast := n.Subscribe(nil)

	for i := 0; i < 2; i++ {
		require.NoError(t, n.Commit(context.Background(), nil, func() ([]Event, error) {
			return []Event{NewEvent(Inserted, EntityMessage, strconv.Itoa(i), nil)}, nil
		}))
		// fast 每次都及时读取
		recv(t, fast)
	}

	// slow 的第一条仍可读到，随后通道关闭
	ev, ok := <-slow.Events()
	assert.True(t, ok)
	assert.Equal(t, "0", ev.EntityId)
	_, ok = <-slow.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, slow.Err(), ErrSlowConsumer)
	assert.Equal(t, 1, hub.Len())
}

func TestUnsubscribeIsIdempotentAndRaceFree(t *testing.T) {
	n := NewLocalNotifier(4)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = n.Commit(context.Background(), nil, func() ([]Event, error) {
					return []Event{NewEvent(Inserted, EntityMessage, "m", nil)}, nil
				})
			}
		}
	}()

	for i := 0; i < 100; i++ {
		s := n.Subscribe(nil)
		n.Unsubscribe(s)
		n.Unsubscribe(s)
		assert.ErrorIs(t, s.Err(), ErrClosed)
	}
	close(stop)
	wg.Wait()
}

func TestKeyLockerHandlesDuplicateAndOverlappingKeys(t *testing.T) {
	l := NewKeyLocker(2)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := l.Lock("a", "b", "a")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := l.Lock("b", "a")
			unlock()
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deadlock")
	}
}

func TestParseTopic(t *testing.T) {
	kind, id, ok := ParseTopic("dm:a:b")
	assert.True(t, ok)
	assert.Equal(t, TopicDM, kind)
	assert.Equal(t, "a:b", id)

	_, _, ok = ParseTopic("nexus:")
	assert.False(t, ok)
}

// fakeKafka 用通道模拟一个单分区主题
type fakeKafka struct {
	ch chan kafka.Message
}

func (f *fakeKafka) WriteMessage(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.ch <- m
	}
	return nil
}

func (f *fakeKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeKafka) Close() {}

func TestKafkaBrokerRoundTrip(t *testing.T) {
	hub := NewHub(8)
	transport := &fakeKafka{ch: make(chan kafka.Message, 8)}
	n := NewNotifier(hub, NewKafkaBroker(hub, transport), 16)
	sub := n.Subscribe(TopicIs(DMTopic("a:b")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	require.NoError(t, n.Commit(ctx, []string{"dm-1"}, func() ([]Event, error) {
		return []Event{NewEvent(Inserted, EntityDirectMessage, "dm-1", map[string]string{"content": "yo"}, DMTopic("a:b"))}, nil
	}))
	ev := recv(t, sub)
	assert.Equal(t, "dm-1", ev.EntityId)
	assert.Equal(t, EntityDirectMessage, ev.EntityType)
}

func TestNotifierStartReturnsImmediately(t *testing.T) {
	hub := NewHub(8)
	n := NewNotifier(hub, NewKafkaBroker(hub, &fakeKafka{ch: make(chan kafka.Message)}), 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		n.Start(ctx)
		close(started)
	}()
	select {
	case <-started:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Start blocked on the consumer loop")
	}
}

// failingKafka 每次读取都失败
type failingKafka struct {
	mu    sync.Mutex
	reads int
}

func (f *failingKafka) WriteMessage(context.Context, ...kafka.Message) error { return nil }

func (f *failingKafka) ReadMessage(context.Context) (kafka.Message, error) {
	f.mu.Lock()
	f.reads++
	f.mu.Unlock()
	return kafka.Message{}, errors.New("broker unavailable")
}

func (f *failingKafka) Close() {}

func (f *failingKafka) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func TestKafkaBrokerBacksOffOnReadErrors(t *testing.T) {
	transport := &failingKafka{}
	b := NewKafkaBroker(NewHub(8), transport)
	b.backoffMin = 20 * time.Millisecond
	b.backoffMax = 80 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	<-done

	// 20+40+80+80 ... 300ms 内最多读取 6 次左右，热循环会是成千上万次
	reads := transport.count()
	assert.GreaterOrEqual(t, reads, 2)
	assert.LessOrEqual(t, reads, 8)
}
