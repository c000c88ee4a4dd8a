package middleware

import (
	"net/http"
	"sync"
	"time"

	"nexus_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdle 超过该时长未出现的客户端被清理
const limiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端 IP 的令牌桶限流
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

// NewRateLimiter 创建限流器，rps <= 0 时不限流
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow 客户端 key 是否还有令牌
func (l *RateLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Cleanup 清理长时间未出现的客户端
func (l *RateLimiter) Cleanup() {
	cutoff := time.Now().Add(-limiterIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, k)
		}
	}
}

// RateLimit 限流中间件，超限返回 429
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": errorx.CodeServerBusy,
				"msg":  "请求过于频繁，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
