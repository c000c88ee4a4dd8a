package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/dto/respond"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/pkg/errorx"
)

type stubNexus struct{ members map[string]bool }

func (s stubNexus) GetNexus(_ context.Context, actor, nexusId string) (*model.Nexus, error) {
	if !s.members[nexusId+"/"+actor] {
		return nil, errorx.New(errorx.CodeForbidden, "你不是该社区成员")
	}
	return &model.Nexus{Id: nexusId}, nil
}

type stubChannel struct{ nexus stubNexus }

func (s stubChannel) Access(ctx context.Context, channelId, userId string) (*model.Channel, error) {
	if _, err := s.nexus.GetNexus(ctx, userId, "n-"+channelId); err != nil {
		return nil, err
	}
	return &model.Channel{Id: channelId, NexusId: "n-" + channelId}, nil
}

func newAuthorizer() TopicAuthorizer {
	n := stubNexus{members: map[string]bool{"n1/u1": true, "n-c1/u1": true}}
	return TopicAuthorizer{Nexus: n, Channel: stubChannel{nexus: n}}
}

func TestTopicAuthorizer(t *testing.T) {
	auth := newAuthorizer()
	ctx := context.Background()
	check := func(userId, topic string) error {
		_, err := auth.Authorize(ctx, userId, topic)
		return err
	}

	assert.NoError(t, check("u1", bus.UserTopic("u1")))
	assert.ErrorIs(t, check("u1", bus.UserTopic("u2")), errorx.ErrForbidden)
	assert.NoError(t, check("u1", bus.ProfileTopic("u2")))
	assert.NoError(t, check("u1", bus.NexusTopic("n1")))
	assert.ErrorIs(t, check("u2", bus.NexusTopic("n1")), errorx.ErrForbidden)
	assert.NoError(t, check("u1", bus.ChannelTopic("c1")))
	assert.ErrorIs(t, check("u2", bus.ChannelTopic("c1")), errorx.ErrForbidden)
	assert.NoError(t, check("u1", bus.DMTopic(model.PairKey("u1", "u9"))))
	assert.ErrorIs(t, check("u3", bus.DMTopic(model.PairKey("u1", "u9"))), errorx.ErrForbidden)
	assert.ErrorIs(t, check("u1", "dm:u9:u1"), errorx.ErrInvalidParam)
	assert.ErrorIs(t, check("u1", "garbage"), errorx.ErrInvalidParam)
	assert.ErrorIs(t, check("u1", "voice:x"), errorx.ErrInvalidParam)

	scope, err := auth.Authorize(ctx, "u1", bus.ChannelTopic("c1"))
	require.NoError(t, err)
	assert.Equal(t, "n-c1", scope)
	scope, err = auth.Authorize(ctx, "u1", bus.NexusTopic("n1"))
	require.NoError(t, err)
	assert.Equal(t, "n1", scope)
	scope, err = auth.Authorize(ctx, "u1", bus.UserTopic("u1"))
	require.NoError(t, err)
	assert.Empty(t, scope)
}

func dial(t *testing.T, m *Manager, userId string) *gws.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.Serve(w, r, userId)
	}))
	t.Cleanup(srv.Close)
	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Event json.RawMessage `json:"event"`
	Msg   string          `json:"msg"`
}

func readFrame(t *testing.T, conn *gws.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestGatewayForwardsAuthorizedTopics(t *testing.T) {
	notifier := bus.NewLocalNotifier(16)
	t.Cleanup(notifier.Close)
	m := NewManager(notifier, newAuthorizer())
	t.Cleanup(m.Close)
	conn := dial(t, m, "u1")

	require.NoError(t, conn.WriteJSON(request.WsFrame{Action: "subscribe", Topic: bus.UserTopic("u1")}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameSubscribed, f.Type)

	require.NoError(t, conn.WriteJSON(request.WsFrame{Action: "subscribe", Topic: bus.UserTopic("u2")}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, bus.UserTopic("u2"), f.Topic)

	require.NoError(t, notifier.Commit(context.Background(), []string{"k"}, func() ([]bus.Event, error) {
		return []bus.Event{
			bus.NewEvent(bus.Inserted, bus.EntityFriendship, "f1", nil, bus.UserTopic("u2")),
			bus.NewEvent(bus.Inserted, bus.EntityFriendship, "f2", nil, bus.UserTopic("u1")),
		}, nil
	}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameEvent, f.Type)
	var ev bus.Event
	require.NoError(t, json.Unmarshal(f.Event, &ev))
	assert.Equal(t, "f2", ev.EntityId)

	require.NoError(t, conn.WriteJSON(request.WsFrame{Action: "unsubscribe", Topic: bus.UserTopic("u1")}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameUnsubscribed, f.Type)

	require.NoError(t, conn.WriteJSON(request.WsFrame{Action: "dance"}))
	f = readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, 1, m.Len())
}

func TestForwardSendsResyncOnSlowConsumer(t *testing.T) {
	hub := bus.NewHub(1)
	m := NewManager(hub, newAuthorizer())
	c := newClient(m, nil, "u1", 8)

	topic := bus.UserTopic("u1")
	sub := hub.Subscribe(bus.TopicIs(topic))
	c.subs[topic] = sub
	hub.Dispatch(bus.NewEvent(bus.Updated, bus.EntityProfile, "u1", nil, topic))
	hub.Dispatch(bus.NewEvent(bus.Updated, bus.EntityProfile, "u1", nil, topic))
	require.ErrorIs(t, sub.Err(), bus.ErrSlowConsumer)

	c.forward(topic, sub)

	var frames []respond.WsEvent
	for len(c.send) > 0 {
		var f respond.WsEvent
		require.NoError(t, json.Unmarshal(<-c.send, &f))
		frames = append(frames, f)
	}
	require.Len(t, frames, 2)
	assert.Equal(t, FrameEvent, frames[0].Type)
	assert.Equal(t, FrameResync, frames[1].Type)
	assert.Empty(t, c.subs)
}

func TestGatewayRevokesTopicsWhenMemberRemoved(t *testing.T) {
	notifier := bus.NewLocalNotifier(16)
	t.Cleanup(notifier.Close)
	m := NewManager(notifier, newAuthorizer())
	t.Cleanup(m.Close)
	conn := dial(t, m, "u1")

	for _, topic := range []string{bus.NexusTopic("n1"), bus.ChannelTopic("c1")} {
		require.NoError(t, conn.WriteJSON(request.WsFrame{Action: "subscribe", Topic: topic}))
		f := readFrame(t, conn)
		require.Equal(t, FrameSubscribed, f.Type, f.Msg)
	}

	publish := func(ev bus.Event) {
		require.NoError(t, notifier.Commit(context.Background(), []string{ev.EntityId}, func() ([]bus.Event, error) {
			return []bus.Event{ev}, nil
		}))
	}
	// 被移出频道 c1 所属的社区
	removed := &model.NexusMember{Id: "m1", NexusId: "n-c1", UserId: "u1"}
	publish(bus.NewEvent(bus.Deleted, bus.EntityNexusMember, removed.Id, removed,
		bus.NexusTopic(removed.NexusId), bus.UserTopic(removed.UserId)))

	f := readFrame(t, conn)
	assert.Equal(t, FrameRevoked, f.Type)
	assert.Equal(t, bus.ChannelTopic("c1"), f.Topic)

	// 撤销后的频道事件不再推送，其它社区不受影响
	publish(bus.NewEvent(bus.Inserted, bus.EntityMessage, "msg1", nil, bus.ChannelTopic("c1")))
	publish(bus.NewEvent(bus.Updated, bus.EntityNexus, "n1", nil, bus.NexusTopic("n1")))
	f = readFrame(t, conn)
	assert.Equal(t, FrameEvent, f.Type)
	assert.Equal(t, bus.NexusTopic("n1"), f.Topic)
}

func TestRevokedScopeFiltersBeforeUnsubscribe(t *testing.T) {
	hub := bus.NewHub(8)
	m := NewManager(hub, newAuthorizer())
	c := newClient(m, nil, "u1", 8)

	topic := bus.ChannelTopic("c1")
	sub := hub.Subscribe(c.scoped(topic, "n-c1"))
	defer hub.Unsubscribe(sub)
	c.setRevoked("n-c1", true)
	hub.Dispatch(bus.NewEvent(bus.Inserted, bus.EntityMessage, "msg1", nil, topic))
	assert.Empty(t, sub.Events())

	c.setRevoked("n-c1", false)
	hub.Dispatch(bus.NewEvent(bus.Inserted, bus.EntityMessage, "msg2", nil, topic))
	assert.Len(t, sub.Events(), 1)
}
