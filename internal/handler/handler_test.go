package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/infrastructure/blob"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service"
	"nexus_chat_server/pkg/errorx"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := InitTrans("zh"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// 未实现的方法直接 panic，测试只覆盖用到的部分
type stubProfiles struct {
	service.ProfileService
	created  []string
	updated  request.UpdateProfileRequest
	byHandle map[string]*model.Profile
}

func (s *stubProfiles) CreateProfile(_ context.Context, id, username, _ string) (*model.Profile, error) {
	s.created = append(s.created, id)
	return &model.Profile{Id: id, Username: username, Tag: "0001"}, nil
}

func (s *stubProfiles) UpdateProfile(_ context.Context, id string, req request.UpdateProfileRequest) (*model.Profile, error) {
	s.updated = req
	return &model.Profile{Id: id}, nil
}

func (s *stubProfiles) FindByHandle(_ context.Context, username, tag string) (*model.Profile, error) {
	if p, ok := s.byHandle[username+"#"+tag]; ok {
		return p, nil
	}
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}

type stubFriends struct {
	service.FriendService
	from, to string
}

func (s *stubFriends) SendRequest(_ context.Context, from, to string) (*model.Friendship, error) {
	s.from, s.to = from, to
	return &model.Friendship{Id: "f1", UserId: from, FriendId: to, Status: model.FriendshipPending}, nil
}

type stubChannels struct {
	service.ChannelService
	beforeSeq int64
	limit     int
	err       error
}

func (s *stubChannels) ListMessages(_ context.Context, _, _ string, beforeSeq int64, limit int) ([]model.Message, error) {
	s.beforeSeq, s.limit = beforeSeq, limit
	return []model.Message{}, s.err
}

type stubNexus struct {
	service.NexusService
	member  bool
	manager bool
	updated request.UpdateNexusRequest
}

func (s *stubNexus) UpdateNexus(_ context.Context, _, nexusId string, req request.UpdateNexusRequest) (*model.Nexus, error) {
	if !s.manager {
		return nil, errorx.New(errorx.CodeForbidden, "只有社区管理员可以执行该操作")
	}
	s.updated = req
	return &model.Nexus{Id: nexusId}, nil
}

func (s *stubNexus) GetNexus(_ context.Context, _, nexusId string) (*model.Nexus, error) {
	if !s.member {
		return nil, errorx.New(errorx.CodeForbidden, "你不是该社区成员")
	}
	return &model.Nexus{Id: nexusId}, nil
}

func (s *stubNexus) RedeemInvite(_ context.Context, code, userId string) (*model.NexusMember, error) {
	if code != "abcd1234" {
		return nil, errorx.ErrInviteExpired
	}
	return &model.NexusMember{NexusId: "n1", UserId: userId, Role: model.RoleMember}, nil
}

type stubStore struct {
	scope, kind string
}

func (s *stubStore) Store(_ context.Context, scopeId, kind string, data []byte) (string, error) {
	s.scope, s.kind = scopeId, kind
	if _, err := blob.Normalize(kind, data); err != nil {
		return "", err
	}
	return "/static/" + kind + "s/" + scopeId + "/x.png", nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newEngine(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "u1")
		c.Next()
	})
	register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreateProfileUsesTokenIdentity(t *testing.T) {
	profiles := &stubProfiles{}
	h := NewProfileHandler(profiles)
	r := newEngine(func(r *gin.Engine) { r.POST("/profile", h.CreateProfile) })

	env := doJSON(t, r, http.MethodPost, "/profile", request.CreateProfileRequest{Username: "alice"})
	assert.Equal(t, errorx.CodeSuccess, env.Code)
	assert.Equal(t, []string{"u1"}, profiles.created)

	var p model.Profile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "alice", p.Username)

	// 缺少必填字段时返回翻译后的校验信息
	env = doJSON(t, r, http.MethodPost, "/profile", map[string]string{})
	assert.Equal(t, errorx.CodeInvalidParam, env.Code)
	msg, ok := env.Msg.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, msg, "username")
}

func TestSendFriendRequestByHandle(t *testing.T) {
	profiles := &stubProfiles{byHandle: map[string]*model.Profile{"bob#0427": {Id: "u2"}}}
	friends := &stubFriends{}
	h := NewFriendHandler(friends, profiles)
	r := newEngine(func(r *gin.Engine) { r.POST("/friend/request", h.SendRequest) })

	env := doJSON(t, r, http.MethodPost, "/friend/request", request.SendFriendRequest{Handle: "bob#0427"})
	assert.Equal(t, errorx.CodeSuccess, env.Code)
	assert.Equal(t, "u1", friends.from)
	assert.Equal(t, "u2", friends.to)

	tests := []struct {
		name string
		body request.SendFriendRequest
		code int
	}{
		{"empty", request.SendFriendRequest{}, errorx.CodeInvalidParam},
		{"bad handle", request.SendFriendRequest{Handle: "bob"}, errorx.CodeInvalidParam},
		{"unknown handle", request.SendFriendRequest{Handle: "carol#0001"}, errorx.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := doJSON(t, r, http.MethodPost, "/friend/request", tt.body)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestListMessagesBindsPaging(t *testing.T) {
	channels := &stubChannels{}
	h := NewChannelHandler(channels)
	r := newEngine(func(r *gin.Engine) { r.GET("/channels/:id/messages", h.ListMessages) })

	env := doJSON(t, r, http.MethodGet, "/channels/c1/messages?before_seq=42&limit=10", nil)
	assert.Equal(t, errorx.CodeSuccess, env.Code)
	assert.Equal(t, int64(42), channels.beforeSeq)
	assert.Equal(t, 10, channels.limit)

	env = doJSON(t, r, http.MethodGet, "/channels/c1/messages?limit=500", nil)
	assert.Equal(t, errorx.CodeInvalidParam, env.Code)

	// 非业务错误统一返回服务繁忙
	channels.err = errors.New("connection refused")
	env = doJSON(t, r, http.MethodGet, "/channels/c1/messages", nil)
	assert.Equal(t, errorx.CodeServerBusy, env.Code)
}

func TestRedeemInvite(t *testing.T) {
	h := NewNexusHandler(&stubNexus{member: true})
	r := newEngine(func(r *gin.Engine) { r.POST("/invite/redeem", h.RedeemInvite) })

	env := doJSON(t, r, http.MethodPost, "/invite/redeem", request.RedeemInviteRequest{Code: "abcd1234"})
	assert.Equal(t, errorx.CodeSuccess, env.Code)
	assert.JSONEq(t, `{"nexus_id":"n1","role":"member"}`, string(env.Data))

	env = doJSON(t, r, http.MethodPost, "/invite/redeem", request.RedeemInviteRequest{Code: "zzzz"})
	assert.Equal(t, errorx.CodeInviteExpired, env.Code)
}

func multipartImage(t *testing.T, path string) *http.Request {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, imaging.Encode(&img, imaging.New(32, 32, color.NRGBA{B: 255, A: 255}), imaging.PNG))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "a.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	store := &stubStore{}
	profiles := &stubProfiles{}
	nexus := &stubNexus{}
	h := NewUploadHandler(store, profiles, nexus)
	r := newEngine(func(r *gin.Engine) {
		r.POST("/upload/profile/:kind", h.UploadProfileAsset)
		r.POST("/upload/nexus/:id/:kind", h.UploadNexusAsset)
	})

	decode := func(w *httptest.ResponseRecorder) envelope {
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		return env
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "/upload/profile/avatar"))
	env := decode(w)
	require.Equal(t, errorx.CodeSuccess, env.Code)
	assert.JSONEq(t, `{"url":"/static/avatars/u1/x.png"}`, string(env.Data))
	require.NotNil(t, profiles.updated.AvatarUrl)
	assert.Equal(t, "/static/avatars/u1/x.png", *profiles.updated.AvatarUrl)
	assert.Nil(t, profiles.updated.BannerUrl)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "/upload/profile/icon"))
	assert.Equal(t, errorx.CodeInvalidParam, decode(w).Code)

	// 非成员不能上传社区资源
	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "/upload/nexus/n1/icon"))
	assert.Equal(t, errorx.CodeForbidden, decode(w).Code)

	// 普通成员存储后写回被拒绝
	nexus.member = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "/upload/nexus/n1/icon"))
	assert.Equal(t, errorx.CodeForbidden, decode(w).Code)

	nexus.manager = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "/upload/nexus/n1/icon"))
	assert.Equal(t, errorx.CodeSuccess, decode(w).Code)
	assert.Equal(t, "n1", store.scope)
	assert.Equal(t, blob.KindIcon, store.kind)
	require.NotNil(t, nexus.updated.IconUrl)
}

func TestDomainValidationTags(t *testing.T) {
	bind := func(newReq func() any) gin.HandlerFunc {
		return func(c *gin.Context) {
			req := newReq()
			if err := c.ShouldBindJSON(req); err != nil {
				HandleParamError(c, err)
				return
			}
			HandleSuccess(c, nil)
		}
	}
	r := newEngine(func(r *gin.Engine) {
		r.POST("/friend", bind(func() any { return &request.SendFriendRequest{} }))
		r.POST("/channel", bind(func() any { return &request.CreateChannelRequest{} }))
		r.POST("/profile", bind(func() any { return &request.UpdateProfileRequest{} }))
		r.POST("/member", bind(func() any { return &request.AddMemberRequest{} }))
	})

	tests := []struct {
		name  string
		path  string
		body  map[string]any
		field string
		want  string
	}{
		{"handle ok", "/friend", map[string]any{"handle": "bob#0427"}, "", ""},
		{"handle without tag", "/friend", map[string]any{"handle": "bob"}, "handle", "用户名#四位数字"},
		{"handle with letters", "/friend", map[string]any{"handle": "bob#04a7"}, "handle", "用户名#四位数字"},
		{"handle with empty name", "/friend", map[string]any{"handle": " #0427"}, "handle", "用户名#四位数字"},
		{"channel ok", "/channel", map[string]any{"name": "general", "type": "voice"}, "", ""},
		{"channel type", "/channel", map[string]any{"name": "general", "type": "video"}, "type", "text 或 voice"},
		{"status ok", "/profile", map[string]any{"status": "dnd"}, "", ""},
		{"status", "/profile", map[string]any{"status": "away"}, "status", "invisible"},
		{"role", "/member", map[string]any{"user_id": "u2", "role": "king"}, "role", "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := doJSON(t, r, http.MethodPost, tt.path, tt.body)
			if tt.field == "" {
				assert.Equal(t, errorx.CodeSuccess, env.Code, env.Msg)
				return
			}
			assert.Equal(t, errorx.CodeInvalidParam, env.Code)
			msg, ok := env.Msg.(map[string]any)
			require.True(t, ok, "msg: %v", env.Msg)
			assert.Contains(t, msg[tt.field], tt.want)
		})
	}
}

func TestHandleErrorSeparatesTransientFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	var next error
	r := newEngine(func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { HandleError(c, next) })
	})

	tests := []struct {
		name  string
		err   error
		code  int
		level zapcore.Level
	}{
		{"terminal", errorx.New(errorx.CodeConflict, "该请求已处理"), errorx.CodeConflict, zapcore.DebugLevel},
		{"db failure", errorx.Wrap(errors.New("deadlock"), errorx.CodeDBError, "update invite"), errorx.CodeServerBusy, zapcore.WarnLevel},
		{"server busy", errorx.ErrServerBusy, errorx.CodeServerBusy, zapcore.WarnLevel},
		{"unwrapped", errors.New("boom"), errorx.CodeServerBusy, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			next = tt.err
			env := doJSON(t, r, http.MethodGet, "/x", nil)
			assert.Equal(t, tt.code, env.Code)
			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
		})
	}

	// 临时故障不向客户端暴露底层信息
	next = errorx.Wrap(errors.New("dial tcp 10.0.0.1:3306"), errorx.CodeDBError, "query profile")
	env := doJSON(t, r, http.MethodGet, "/x", nil)
	assert.Equal(t, errorx.ErrServerBusy.Msg, env.Msg)
}
