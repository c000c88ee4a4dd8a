// Package database 负责建立数据库连接与表结构迁移
// 支持 mysql / postgres / sqlite 三种驱动，sqlite 主要用于本地开发与测试
package database

import (
	"fmt"
	"time"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/internal/model"

	"github.com/glebarez/sqlite"       // 纯 Go 的 SQLite 驱动
	"go.uber.org/zap"                  // 日志库
	mysqldriver "gorm.io/driver/mysql" // GORM MySQL 驱动
	"gorm.io/driver/postgres"          // GORM PostgreSQL 驱动（pgx）
	"gorm.io/gorm"                     // GORM ORM 框架
	"gorm.io/gorm/logger"
)

// 驱动名称
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open 按配置建立数据库连接
// 执行步骤：
//  1. 根据 driver 构建 DSN（Dsn 非空时直接使用）
//  2. 使用 GORM 建立连接，开启错误翻译以识别唯一约束冲突
//  3. 设置连接池；sqlite 只允许一个连接，写操作因此天然串行
func Open(conf config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(conf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if conf.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		if conf.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
		}
		if conf.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
		}
	}
	return db, nil
}

func dialectorFor(conf config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case DriverMySQL, "":
		dsn := conf.Dsn
		if dsn == "" {
			// 格式：user:password@tcp(host:port)/database?params
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName)
		}
		return mysqldriver.Open(dsn), nil
	case DriverPostgres:
		dsn := conf.Dsn
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				conf.Host, conf.Port, conf.User, conf.Password, conf.DatabaseName)
		}
		return postgres.Open(dsn), nil
	case DriverSQLite:
		dsn := conf.Dsn
		if dsn == "" {
			dsn = "file::memory:"
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
}

// Migrate 自动迁移表结构
// 如果表不存在则创建，如果字段变更则更新结构；不会删除已有字段或数据
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Init 按全局配置连接并迁移，失败直接退出
func Init() *gorm.DB {
	conf := config.GetConfig()
	db, err := Open(conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("数据库连接失败", zap.Error(err))
	}
	if err := Migrate(db); err != nil {
		zap.L().Fatal("数据库迁移失败", zap.Error(err))
	}
	zap.L().Info("数据库初始化完成", zap.String("driver", conf.DatabaseConfig.Driver))
	return db
}
