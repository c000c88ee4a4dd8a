package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/internal/dao/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据表后退出",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := config.GetConfig()
			if err := setupBase(conf); err != nil {
				return err
			}
			db, err := database.Open(conf.DatabaseConfig)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			zap.L().Info("迁移完成", zap.String("driver", conf.DatabaseConfig.Driver))
			return nil
		},
	}
}
