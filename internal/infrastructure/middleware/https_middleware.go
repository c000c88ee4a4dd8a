package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler 将 HTTP 请求重定向到 HTTPS，并附带常用安全响应头
func TlsHandler(host string, port int) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:          true,
		SSLHost:              host + ":" + strconv.Itoa(port),
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
	})

	return func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			// 重定向已由 secure 写入响应
			zap.L().Debug("TLS redirect", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}
