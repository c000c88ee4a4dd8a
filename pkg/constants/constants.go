package constants

import "time"

const (
	CHANNEL_SIZE = 100 // 每个 WebSocket 连接的发送队列

	TAG_MAX_ATTEMPTS              = 10 // 标签冲突重试上限
	INVITE_CODE_MAX_ATTEMPTS      = 5  // 邀请码冲突重试上限
	INVITE_CODE_LENGTH            = 8  // 邀请码长度
	INVITE_REDEEM_MAX_ATTEMPTS    = 3  // 邀请核销遇到死锁/序列化失败时的重试上限
	CHANNEL_POSITION_MAX_ATTEMPTS = 5  // 频道位置冲突重试上限

	USERNAME_MAX_LEN      = 32
	BIO_MAX_LEN           = 190
	CUSTOM_STATUS_MAX_LEN = 128
	NEXUS_NAME_MAX_LEN    = 100
	NEXUS_DESC_MAX_LEN    = 1000
	CHANNEL_NAME_MAX_LEN  = 100
	MESSAGE_MAX_LEN       = 2000
	MESSAGE_PAGE_MAX      = 100 // 单次拉取消息条数上限

	SUBSCRIBER_BUFFER = 64  // 每个订阅者的事件缓冲
	LOCK_STRIPES      = 256 // 实体锁分段数

	BLOB_MAX_SIZE = 8 << 20 // 上传图片最大 8MB
)

const (
	DEFAULT_CHANNEL_NAME      = "general"
	DEFAULT_TEXT_CATEGORY     = "Text Channels"
	DEFAULT_VOICE_CATEGORY    = "Voice Channels"
	RETRY_BACKOFF             = 10 * time.Millisecond
	PROFILE_CACHE_TTL         = time.Hour
	PROFILE_CACHE_KEY_PREFIX  = "profile_info_"
	WS_WRITE_WAIT             = 10 * time.Second
	WS_PONG_WAIT              = 60 * time.Second
	WS_PING_PERIOD            = (WS_PONG_WAIT * 9) / 10
	WS_MAX_MESSAGE_SIZE int64 = 4096
)
