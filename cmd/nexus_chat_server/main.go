package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nexus_chat_server/internal/config"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "nexus_chat_server",
		Short: "Nexus 社区聊天服务",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				_ = config.GetConfig()
				return nil
			}
			return config.LoadConfigFrom(configPath)
		},
		// 不带子命令时等同于 serve
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，默认按 configs/ 下的候选路径查找")

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
