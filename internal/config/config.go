// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库

	"nexus_chat_server/pkg/constants"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName  string `toml:"appName"`  // 应用名称，用于日志标识等
	Host     string `toml:"host"`     // 服务器监听地址，如 "0.0.0.0"
	Port     int    `toml:"port"`     // 服务器监听端口，如 8000
	Mode     string `toml:"mode"`     // 运行模式：dev / release
	ForceTLS bool   `toml:"forceTLS"` // 是否强制 HTTPS 跳转
	CertFile string `toml:"certFile"` // TLS 证书路径，留空则以 HTTP 启动
	KeyFile  string `toml:"keyFile"`  // TLS 私钥路径
}

// DatabaseConfig 数据库连接配置
type DatabaseConfig struct {
	Driver       string `toml:"driver"`       // mysql / postgres / sqlite
	Host         string `toml:"host"`         // 数据库服务器地址
	Port         int    `toml:"port"`         // 端口，mysql 默认 3306，postgres 默认 5432
	User         string `toml:"user"`         // 数据库用户名
	Password     string `toml:"password"`     // 数据库密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
	Dsn          string `toml:"dsn"`          // 完整 DSN，非空时优先于上面的字段；sqlite 下为文件路径
	MaxOpenConns int    `toml:"maxOpenConns"` // 最大连接数
	MaxIdleConns int    `toml:"maxIdleConns"` // 最大空闲连接数
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`  // 是否启用资料缓存
	Host     string `toml:"host"`     // Redis 服务器地址
	Port     int    `toml:"port"`     // Redis 端口，默认 6379
	Password string `toml:"password"` // Redis 密码，无密码留空
	Db       int    `toml:"db"`       // Redis 数据库编号，默认 0
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig Kafka 消息队列配置
type KafkaConfig struct {
	MessageMode string        `toml:"messageMode"` // 消息模式："channel" 或 "kafka"
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	EventTopic  string        `toml:"eventTopic"`  // 变更事件主题
	GroupID     string        `toml:"groupId"`     // 消费组前缀，实际组名追加雪花机器 ID
	Timeout     time.Duration `toml:"timeout"`     // 超时时间（秒）
}

// InstanceGroupID 每个实例独立的消费组，保证每个实例都能收到全部事件
func (k KafkaConfig) InstanceGroupID(machineID int64) string {
	return fmt.Sprintf("%s_%d", k.GroupID, machineID)
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret             string `toml:"secret"`             // JWT 签名密钥，建议 32 字符以上
	AccessTokenExpiry  int    `toml:"accessTokenExpiry"`  // Access Token 有效期（分钟）
	RefreshTokenExpiry int    `toml:"refreshTokenExpiry"` // Refresh Token 有效期（小时）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 雪花算法节点 ID，范围 0-1023，分布式部署时每台机器需唯一
}

// BusConfig 变更通知总线配置
type BusConfig struct {
	SubscriberBuffer int `toml:"subscriberBuffer"` // 每个订阅者的缓冲区大小，满了即断开
	LockStripes      int `toml:"lockStripes"`      // 实体键锁的分段数
}

// DMConfig 私信策略配置
type DMConfig struct {
	Policy string `toml:"policy"` // open / no_block / friends_only
}

// BlobConfig 头像、横幅等二进制资源存储配置
type BlobConfig struct {
	Driver        string `toml:"driver"`        // local / s3
	LocalPath     string `toml:"localPath"`     // local 模式下的存储目录
	PublicBaseURL string `toml:"publicBaseURL"` // local 模式下对外访问前缀
	S3Endpoint    string `toml:"s3Endpoint"`    // 兼容 S3 的服务地址，AWS 留空
	S3Region      string `toml:"s3Region"`
	S3Bucket      string `toml:"s3Bucket"`
	S3AccessKey   string `toml:"s3AccessKey"`
	S3SecretKey   string `toml:"s3SecretKey"`
	S3PublicURL   string `toml:"s3PublicURL"` // 对外访问前缀
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Rps   float64 `toml:"rps"`   // 每个客户端每秒请求数，<=0 表示不限流
	Burst int     `toml:"burst"` // 突发容量
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`      // 主配置
	DatabaseConfig  `toml:"databaseConfig"`  // 数据库配置
	RedisConfig     `toml:"redisConfig"`     // Redis 配置
	LogConfig       `toml:"logConfig"`       // 日志配置
	KafkaConfig     `toml:"kafkaConfig"`     // Kafka 配置
	JWTConfig       `toml:"jwtConfig"`       // JWT 配置
	SnowflakeConfig `toml:"snowflakeConfig"` // 雪花算法配置
	BusConfig       `toml:"busConfig"`       // 通知总线配置
	DMConfig        `toml:"dmConfig"`        // 私信策略
	BlobConfig      `toml:"blobConfig"`      // 资源存储配置
	RateLimitConfig `toml:"rateLimitConfig"` // 限流配置
}

// config 全局配置单例，延迟加载
var config *Config

// defaults 未在配置文件中出现的字段使用的默认值
func defaults() *Config {
	return &Config{
		MainConfig:      MainConfig{AppName: "nexus_chat_server", Host: "0.0.0.0", Port: 8000, Mode: "dev"},
		DatabaseConfig:  DatabaseConfig{Driver: "sqlite", Dsn: "nexus.db", MaxOpenConns: 50, MaxIdleConns: 10},
		LogConfig:       LogConfig{LogPath: "logs", FileName: "nexus.log", MaxSize: 100, MaxBackups: 7, MaxAge: 30, Level: "info"},
		KafkaConfig:     KafkaConfig{MessageMode: "channel", EventTopic: "nexus_events", GroupID: "nexus_bus", Timeout: 1},
		JWTConfig:       JWTConfig{AccessTokenExpiry: 60, RefreshTokenExpiry: 168},
		SnowflakeConfig: SnowflakeConfig{MachineID: 1},
		BusConfig:       BusConfig{SubscriberBuffer: constants.SUBSCRIBER_BUFFER, LockStripes: constants.LOCK_STRIPES},
		DMConfig:        DMConfig{Policy: "no_block"},
		BlobConfig:      BlobConfig{Driver: "local", LocalPath: "static", PublicBaseURL: "/static"},
		RateLimitConfig: RateLimitConfig{Rps: 20, Burst: 40},
	}
}

// LoadConfig 从多个候选路径加载配置文件
// 按顺序尝试加载，找到第一个可用的配置文件即停止
func LoadConfig() error {
	// 候选配置文件路径（优先加载本地配置）
	paths := []string{
		"configs/config_local.toml",       // 本地开发配置（优先）
		"configs/config.toml",             // 默认配置
		"../../configs/config_local.toml", // 从子目录运行时的路径
		"../../configs/config.toml",       // 从子目录运行时的路径
	}
	return LoadConfigFrom(paths...)
}

// LoadConfigFrom 依次尝试给定路径，第一个解析成功的文件覆盖默认值
func LoadConfigFrom(paths ...string) error {
	if config == nil {
		config = defaults()
	}
	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil // 加载成功
		}
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件
func GetConfig() *Config {
	if config == nil {
		config = defaults()
		_ = LoadConfig() // 忽略加载错误，使用默认值
	}
	return config
}
