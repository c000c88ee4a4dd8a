package middleware

import (
	"net/http"
	"strings"

	"nexus_chat_server/pkg/errorx"
	"nexus_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// ContextUserID gin 上下文中保存当前用户 ID 的键
const ContextUserID = "user_id"

// JWTAuth JWT 认证中间件
// Token 取自 Authorization: Bearer 头；浏览器的 WebSocket 无法设置请求头，因此也接受 ?token= 查询参数
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请先登录",
			})
			return
		}

		userID, err := jwt.VerifySession(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 已过期或无效，请重新登录",
			})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// UserID 读取 JWTAuth 写入的用户 ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
