package channel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/internal/service/nexus"
	"nexus_chat_server/internal/service/servicetest"
	"nexus_chat_server/pkg/constants"
	"nexus_chat_server/pkg/errorx"
)

type fixture struct {
	repos    *repository.Repositories
	notifier *bus.Notifier
	svc      *Service
	owner    *model.Profile
	member   *model.Profile
	outsider *model.Profile
	nexus    *model.Nexus
	general  model.Channel
}

func setupWith(t *testing.T, repos *repository.Repositories) *fixture {
	ctx := context.Background()
	notifier := servicetest.NewNotifier(t)
	nexusSvc := nexus.NewService(repos, notifier)
	f := &fixture{
		repos:    repos,
		notifier: notifier,
		svc:      NewService(repos, notifier),
		owner:    servicetest.SeedProfile(t, repos, "owner"),
		member:   servicetest.SeedProfile(t, repos, "member"),
		outsider: servicetest.SeedProfile(t, repos, "outsider"),
	}
	n, err := nexusSvc.CreateNexus(ctx, f.owner.Id, request.CreateNexusRequest{Name: "Gophers"})
	require.NoError(t, err)
	f.nexus = n
	_, err = nexusSvc.AddMember(ctx, f.owner.Id, n.Id, f.member.Id, model.RoleMember)
	require.NoError(t, err)
	channels, err := repos.Channel.FindByNexus(n.Id)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	f.general = channels[0]
	return f
}

func setup(t *testing.T) *fixture {
	return setupWith(t, servicetest.NewRepos(t))
}

func (f *fixture) post(t *testing.T, content string, replyTo *string) *model.Message {
	t.Helper()
	m, err := f.svc.PostMessage(context.Background(), f.general.Id, f.member.Id, request.PostMessageRequest{Content: content, ReplyTo: replyTo})
	require.NoError(t, err)
	return m
}

func TestCreateChannelAssignsPositions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.CreateChannel(ctx, f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "random"})
	require.NoError(t, err)
	assert.Equal(t, constants.DEFAULT_TEXT_CATEGORY, a.Category)
	assert.Equal(t, 1, a.Position)

	b, err := f.svc.CreateChannel(ctx, f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "help"})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Position)

	voice, err := f.svc.CreateChannel(ctx, f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "Lounge", Type: model.ChannelTypeVoice})
	require.NoError(t, err)
	assert.Equal(t, constants.DEFAULT_VOICE_CATEGORY, voice.Category)
	assert.Equal(t, 0, voice.Position)

	_, err = f.svc.CreateChannel(ctx, f.member.Id, f.nexus.Id, request.CreateChannelRequest{Name: "nope"})
	assert.ErrorIs(t, err, errorx.ErrForbidden)
	_, err = f.svc.CreateChannel(ctx, f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "x", Type: "video"})
	assert.ErrorIs(t, err, errorx.ErrInvalidParam)

	list, err := f.svc.ListChannels(ctx, f.member.Id, f.nexus.Id)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "general", list[0].Name)
	assert.Equal(t, "random", list[1].Name)
	assert.Equal(t, "help", list[2].Name)
	assert.Equal(t, "Lounge", list[3].Name)

	_, err = f.svc.ListChannels(ctx, f.outsider.Id, f.nexus.Id)
	assert.ErrorIs(t, err, errorx.ErrForbidden)
}

func TestCreateChannelRetriesOnPositionConflict(t *testing.T) {
	db := servicetest.NewDB(t)
	var raced atomic.Int32
	// 模拟另一个实例在同一位置抢先插入
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:race_position", func(tx *gorm.DB) {
		ch, ok := tx.Statement.Dest.(*model.Channel)
		if !ok || ch.Name != "racing" || !raced.CompareAndSwap(0, 1) {
			return
		}
		rival := &model.Channel{
			Id:       uuid.NewString(),
			NexusId:  ch.NexusId,
			Name:     "rival",
			Type:     model.ChannelTypeText,
			Category: ch.Category,
			Position: ch.Position,
		}
		_ = tx.Session(&gorm.Session{NewDB: true}).Create(rival).Error
	}))
	f := setupWith(t, repository.NewRepositories(db))

	ch, err := f.svc.CreateChannel(context.Background(), f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "racing"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), raced.Load())
	assert.Equal(t, 1, ch.Position)
}

func TestPostMessageRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sub := f.notifier.Subscribe(bus.TopicIs(bus.ChannelTopic(f.general.Id)))

	_, err := f.svc.PostMessage(ctx, f.general.Id, f.outsider.Id, request.PostMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, errorx.ErrForbidden)
	_, err = f.svc.PostMessage(ctx, "missing", f.member.Id, request.PostMessageRequest{Content: "hi"})
	assert.True(t, errorx.IsNotFound(err))
	_, err = f.svc.PostMessage(ctx, f.general.Id, f.member.Id, request.PostMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, errorx.ErrInvalidParam)

	other, err := f.svc.CreateChannel(ctx, f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "other"})
	require.NoError(t, err)
	elsewhere, err := f.svc.PostMessage(ctx, other.Id, f.owner.Id, request.PostMessageRequest{Content: "elsewhere"})
	require.NoError(t, err)
	_, err = f.svc.PostMessage(ctx, f.general.Id, f.member.Id, request.PostMessageRequest{Content: "re", ReplyTo: &elsewhere.Id})
	assert.ErrorIs(t, err, errorx.ErrInvalidReference)
	ghost := "ghost"
	_, err = f.svc.PostMessage(ctx, f.general.Id, f.member.Id, request.PostMessageRequest{Content: "re", ReplyTo: &ghost})
	assert.ErrorIs(t, err, errorx.ErrInvalidReference)

	voice, err := f.svc.CreateChannel(ctx, f.owner.Id, f.nexus.Id, request.CreateChannelRequest{Name: "talk", Type: model.ChannelTypeVoice})
	require.NoError(t, err)
	_, err = f.svc.PostMessage(ctx, voice.Id, f.member.Id, request.PostMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, errorx.ErrInvalidParam)

	// 失败的写入不产生事件
	assert.Empty(t, servicetest.Drain(sub))

	root := f.post(t, "root", nil)
	reply := f.post(t, "reply", &root.Id)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, root.Id, *reply.ReplyTo)
	assert.Greater(t, reply.Seq, root.Seq)

	events := servicetest.Drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, root.Id, events[0].EntityId)
	assert.Equal(t, reply.Id, events[1].EntityId)
}

func TestMessageOrderStableUnderEdit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var posted []*model.Message
	for i := 0; i < 3; i++ {
		posted = append(posted, f.post(t, fmt.Sprintf("m%d", i), nil))
	}

	_, err := f.svc.EditMessage(ctx, posted[1].Id, f.owner.Id, "hijack")
	assert.ErrorIs(t, err, errorx.ErrForbidden)

	edited, err := f.svc.EditMessage(ctx, posted[1].Id, f.member.Id, "m1 (edited)")
	require.NoError(t, err)
	assert.True(t, edited.Edited)
	assert.Equal(t, posted[1].Seq, edited.Seq)
	assert.True(t, posted[1].CreatedAt.Equal(edited.CreatedAt))

	list, err := f.svc.ListMessages(ctx, f.member.Id, f.general.Id, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, m := range list {
		assert.Equal(t, posted[i].Id, m.Id)
		assert.Equal(t, posted[i].Seq, m.Seq)
	}
	assert.Equal(t, "m1 (edited)", list[1].Content)
}

func TestListMessagesPaging(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var posted []*model.Message
	for i := 0; i < 5; i++ {
		posted = append(posted, f.post(t, fmt.Sprintf("m%d", i), nil))
	}

	page, err := f.svc.ListMessages(ctx, f.member.Id, f.general.Id, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, posted[3].Id, page[0].Id)
	assert.Equal(t, posted[4].Id, page[1].Id)

	page, err = f.svc.ListMessages(ctx, f.member.Id, f.general.Id, page[0].Seq, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, posted[1].Id, page[0].Id)
	assert.Equal(t, posted[2].Id, page[1].Id)

	_, err = f.svc.ListMessages(ctx, f.outsider.Id, f.general.Id, 0, 10)
	assert.ErrorIs(t, err, errorx.ErrForbidden)
}

func TestDeleteMessageClearsReplies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	root := f.post(t, "root", nil)
	reply := f.post(t, "reply", &root.Id)
	other := servicetest.SeedProfile(t, f.repos, "other")
	require.NoError(t, f.repos.NexusMember.Create(&model.NexusMember{Id: uuid.NewString(), NexusId: f.nexus.Id, UserId: other.Id, Role: model.RoleMember}))

	assert.ErrorIs(t, f.svc.DeleteMessage(ctx, root.Id, other.Id), errorx.ErrForbidden)
	require.NoError(t, f.svc.DeleteMessage(ctx, root.Id, f.owner.Id))

	_, err := f.repos.Message.FindById(root.Id)
	assert.True(t, errorx.IsNotFound(err))
	got, err := f.repos.Message.FindById(reply.Id)
	require.NoError(t, err)
	assert.Nil(t, got.ReplyTo)

	require.NoError(t, f.svc.DeleteMessage(ctx, reply.Id, f.member.Id))
	assert.True(t, errorx.IsNotFound(f.svc.DeleteMessage(ctx, reply.Id, f.member.Id)))
}

func TestDeleteChannelRemovesMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.post(t, "bye", nil)

	assert.ErrorIs(t, f.svc.DeleteChannel(ctx, f.member.Id, f.general.Id), errorx.ErrForbidden)
	require.NoError(t, f.svc.DeleteChannel(ctx, f.owner.Id, f.general.Id))

	var n int64
	require.NoError(t, f.repos.DB().Model(&model.Message{}).Count(&n).Error)
	assert.Zero(t, n)
	_, err := f.svc.Access(ctx, f.general.Id, f.owner.Id)
	assert.True(t, errorx.IsNotFound(err))
}
