// Package redis 提供 Redis 缓存操作的封装
// 本文件仅包含 Redis 连接初始化逻辑
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"strconv"
	"time"

	"nexus_chat_server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Init 初始化 Redis 连接
// 从配置文件读取连接参数并创建缓存服务；未启用或连接失败时返回 nil，资料服务将直接读库
func Init() *RedisCache {
	conf := config.GetConfig()
	if !conf.RedisConfig.Enabled {
		zap.L().Info("Redis 未启用，资料缓存关闭")
		return nil
	}

	// 拼接地址：host:port
	addr := conf.RedisConfig.Host + ":" + strconv.Itoa(conf.RedisConfig.Port)

	// 创建 Redis 客户端
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: conf.RedisConfig.Password,
		DB:       conf.RedisConfig.Db,
		// 连接池配置
		PoolSize:     50, // 最大连接数
		MinIdleConns: 15, // 最小空闲连接，与 Worker 数量匹配
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.L().Warn("Redis 连接失败，资料缓存关闭", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	// 初始化缓存更新 Worker Pool
	// 启动 15 个 Worker，缓冲区大小 3000
	return NewRedisCache(client, 15, 3000)
}
