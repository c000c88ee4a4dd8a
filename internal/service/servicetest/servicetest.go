// Package servicetest 业务层测试共用的数据库与数据构造
package servicetest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/internal/dao/database"
	"nexus_chat_server/internal/dao/database/repository"
	"nexus_chat_server/internal/model"
	"nexus_chat_server/internal/service/bus"
)

// NewDB 内存 sqlite，已迁移
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, Dsn: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRepos 基于内存 sqlite 的 Repositories
func NewRepos(t testing.TB) *repository.Repositories {
	return repository.NewRepositories(NewDB(t))
}

// NewNotifier 单机通知器，缓冲区足够大以免测试中被断开
func NewNotifier(t testing.TB) *bus.Notifier {
	n := bus.NewLocalNotifier(1024)
	t.Cleanup(n.Close)
	return n
}

var seq atomic.Int64

// SeedProfile 直接写入一条资料
func SeedProfile(t testing.TB, repos *repository.Repositories, username string) *model.Profile {
	t.Helper()
	p := &model.Profile{
		Id:       uuid.NewString(),
		Username: username,
		Tag:      fmt.Sprintf("%04d", seq.Add(1)%9999+1),
		Status:   model.ProfileStatusOnline,
	}
	require.NoError(t, repos.Profile.Create(p))
	return p
}

// Drain 读出订阅中已有的事件
func Drain(sub *bus.Subscription) []bus.Event {
	var out []bus.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(20 * time.Millisecond):
			return out
		}
	}
}
