package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexus_chat_server/internal/config"
	"nexus_chat_server/pkg/util/jwt"
)

// 开发环境下代替身份提供方签发 Access Token
func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <userId>",
		Short: "为指定用户签发开发用 Access Token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := config.GetConfig()
			jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
			token, err := jwt.GenerateAccessToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
