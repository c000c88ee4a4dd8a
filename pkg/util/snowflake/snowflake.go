package snowflake

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init 初始化雪花算法节点
// 应在程序启动时调用一次，machineID 范围 0-1023，分布式部署时每台机器需唯一
func Init(machineID int64) {
	nodeOnce.Do(func() {
		if machineID < 0 || machineID > 1023 {
			zap.L().Warn("Invalid MachineID in config, using default value 1", zap.Int64("machineID", machineID))
			machineID = 1
		}
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			zap.L().Fatal("Failed to initialize snowflake node", zap.Error(err))
		}
		zap.L().Info("Snowflake node initialized", zap.Int64("machineID", machineID))
	})
}

// Next 生成一个单调递增的雪花 ID 及其内嵌的毫秒时间戳
// 消息的 seq 与 created_at 都取自同一个 ID，保证 (created_at, seq) 是全序
func Next() (int64, time.Time) {
	Init(1)
	id := node.Generate()
	return id.Int64(), time.UnixMilli(id.Time()).UTC()
}

