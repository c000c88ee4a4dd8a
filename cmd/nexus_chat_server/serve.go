package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/internal/dao/database"
	"nexus_chat_server/internal/dao/database/repository"
	myredis "nexus_chat_server/internal/dao/redis"
	"nexus_chat_server/internal/gateway/websocket"
	"nexus_chat_server/internal/handler"
	"nexus_chat_server/internal/https_server"
	"nexus_chat_server/internal/infrastructure/blob"
	"nexus_chat_server/internal/infrastructure/logger"
	"nexus_chat_server/internal/infrastructure/middleware"
	"nexus_chat_server/internal/infrastructure/mq"
	"nexus_chat_server/internal/service"
	"nexus_chat_server/internal/service/bus"
	"nexus_chat_server/internal/service/dm"
	"nexus_chat_server/pkg/util/jwt"
	"nexus_chat_server/pkg/util/snowflake"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 与 WebSocket 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// setupBase 初始化日志、雪花算法与 JWT，所有子命令共用
func setupBase(conf *config.Config) error {
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		return fmt.Errorf("init logger failed: %w", err)
	}
	snowflake.Init(conf.SnowflakeConfig.MachineID)
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
	return nil
}

func runServe() error {
	conf := config.GetConfig()

	// 1. 日志、雪花算法、JWT
	if err := setupBase(conf); err != nil {
		return err
	}
	defer zap.L().Sync()
	zap.L().Info("日志初始化成功", zap.String("mode", conf.MainConfig.Mode))

	policy, err := dm.ParsePolicy(conf.DMConfig.Policy)
	if err != nil {
		return err
	}

	// 2. 数据库
	db := database.Init()
	repos := repository.NewRepositories(db)

	// 3. Redis（可选）
	var cache myredis.AsyncCacheService
	if rc := myredis.Init(); rc != nil {
		cache = rc
		defer rc.Close()
	}

	// 4. 变更通知总线
	hub := bus.NewHub(conf.BusConfig.SubscriberBuffer)
	var broker bus.Broker
	if conf.KafkaConfig.MessageMode == "kafka" {
		kafkaConf := conf.KafkaConfig
		kafkaConf.GroupID = kafkaConf.InstanceGroupID(conf.SnowflakeConfig.MachineID)
		client := mq.NewKafkaClient(kafkaConf)
		client.CreateTopic(1)
		broker = bus.NewKafkaBroker(hub, client)
		zap.L().Info("总线使用 Kafka", zap.String("topic", kafkaConf.EventTopic), zap.String("group", kafkaConf.GroupID))
	}
	notifier := bus.NewNotifier(hub, broker, conf.BusConfig.LockStripes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notifier.Start(ctx) // kafka 模式下在后台消费

	// 5. Service 层
	service.InitServices(repos, cache, notifier, policy)
	zap.L().Info("Service 层初始化成功", zap.String("dm_policy", string(policy)))

	// 6. 资源存储
	store, err := blob.New(ctx, conf.BlobConfig)
	if err != nil {
		return err
	}

	// 7. 网关与 HTTP
	wsManager := websocket.NewManager(notifier, websocket.TopicAuthorizer{
		Nexus:   service.Svc.Nexus,
		Channel: service.Svc.Channel,
	})
	limiter := middleware.NewRateLimiter(conf.RateLimitConfig.Rps, conf.RateLimitConfig.Burst)
	go cleanupLimiter(ctx, limiter)

	if err := handler.InitTrans("zh"); err != nil {
		return fmt.Errorf("init validator translator failed: %w", err)
	}
	engine := https_server.Init(conf, handler.NewHandlers(service.Svc, wsManager, store), limiter)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		var err error
		if conf.MainConfig.CertFile != "" {
			err = srv.ListenAndServeTLS(conf.MainConfig.CertFile, conf.MainConfig.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("服务运行异常", zap.Error(err))
			stop()
		}
	}()
	zap.L().Info("服务已启动", zap.String("addr", srv.Addr))

	// 等待信号
	<-ctx.Done()
	zap.L().Info("关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsManager.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP 服务关闭失败", zap.Error(err))
	}
	notifier.Close()

	zap.L().Info("服务器已关闭")
	return nil
}

func cleanupLimiter(ctx context.Context, l *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}
