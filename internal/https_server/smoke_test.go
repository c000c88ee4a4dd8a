package https_server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/internal/dto/request"
	"nexus_chat_server/internal/gateway/websocket"
	"nexus_chat_server/internal/handler"
	"nexus_chat_server/internal/infrastructure/blob"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/internal/service/dm"
	"nexus_chat_server/internal/service/servicetest"
	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/jwt"
	"nexus_chat_server/pkg/util/snowflake"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c apiClient) do(method, path string, body any, out any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode, path)

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(c.t, errorx.CodeSuccess, env.Code, "%s %s: %v", method, path, env.Msg)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
}

func newClient(t *testing.T, base string) apiClient {
	token, err := jwt.GenerateAccessToken(uuid.NewString())
	require.NoError(t, err)
	return apiClient{t: t, base: base, token: token}
}

// 创建资料、建社区、邀请入群、订阅频道、发消息，全链路走真实服务
func TestSmokeNexusFlow(t *testing.T) {
	jwt.Init("test-secret", 15, 168)
	snowflake.Init(1)
	require.NoError(t, handler.InitTrans("zh"))

	repos := servicetest.NewRepos(t)
	notifier := servicetest.NewNotifier(t)
	svc := service.NewServices(repos, nil, notifier, dm.PolicyNoBlock)
	wsManager := websocket.NewManager(notifier, websocket.TopicAuthorizer{Nexus: svc.Nexus, Channel: svc.Channel})
	t.Cleanup(wsManager.Close)

	conf := &config.Config{BlobConfig: config.BlobConfig{Driver: "local", LocalPath: t.TempDir(), PublicBaseURL: "/static"}}
	store := blob.NewLocalStore(conf.BlobConfig.LocalPath, conf.BlobConfig.PublicBaseURL)
	server := httptest.NewServer(Init(conf, handler.NewHandlers(svc, wsManager, store), nil))
	t.Cleanup(server.Close)

	alice, bob := newClient(t, server.URL), newClient(t, server.URL)
	alice.do(http.MethodPost, "/api/v1/profile", request.CreateProfileRequest{Username: "alice"}, nil)
	bob.do(http.MethodPost, "/api/v1/profile", request.CreateProfileRequest{Username: "bob"}, nil)

	var nexus model.Nexus
	alice.do(http.MethodPost, "/api/v1/nexus", request.CreateNexusRequest{Name: "Gophers"}, &nexus)
	var channels []model.Channel
	alice.do(http.MethodGet, "/api/v1/nexus/"+nexus.Id+"/channels", nil, &channels)
	require.Len(t, channels, 1)
	general := channels[0]

	var invite model.Invite
	alice.do(http.MethodPost, "/api/v1/nexus/"+nexus.Id+"/invites", request.CreateInviteRequest{}, &invite)
	bob.do(http.MethodPost, "/api/v1/invite/redeem", request.RedeemInviteRequest{Code: invite.Code}, nil)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + bob.token
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	readFrame := func() map[string]json.RawMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f map[string]json.RawMessage
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}
	require.NoError(t, conn.WriteJSON(request.WsFrame{Action: "subscribe", Topic: bus.ChannelTopic(general.Id)}))
	assert.JSONEq(t, `"`+websocket.FrameSubscribed+`"`, string(readFrame()["type"]))

	var posted model.Message
	alice.do(http.MethodPost, "/api/v1/channels/"+general.Id+"/messages", request.PostMessageRequest{Content: "hello"}, &posted)

	f := readFrame()
	assert.JSONEq(t, `"`+websocket.FrameEvent+`"`, string(f["type"]))
	var ev bus.Event
	require.NoError(t, json.Unmarshal(f["event"], &ev))
	assert.Equal(t, bus.EntityMessage, ev.EntityType)
	assert.Equal(t, posted.Id, ev.EntityId)

	var history []model.Message
	bob.do(http.MethodGet, "/api/v1/channels/"+general.Id+"/messages?limit=50", nil, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}
