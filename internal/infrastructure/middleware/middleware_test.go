package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus_chat_server/pkg/util/jwt"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	jwt.Init("test-secret-test-secret-test-secret", 5, 1)
	token, err := jwt.GenerateAccessToken("u-1")
	require.NoError(t, err)
	refresh, _, err := jwt.GenerateRefreshToken("u-1")
	require.NoError(t, err)
	r := newEngine(JWTAuth())

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, "", http.StatusUnauthorized},
		{"garbage", "Bearer abc", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u-1", w.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(NewRateLimiter(1, 2)))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	unlimited := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow("k"))
	}
}

func TestTlsHandlerRedirects(t *testing.T) {
	r := newEngine(TlsHandler("example.com", 8443))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example.com/me", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com:8443/me", w.Header().Get("Location"))
}
