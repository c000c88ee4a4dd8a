package logger

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nexus_chat_server/internal/config"
)

func TestInitWritesToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, Init(&config.LogConfig{LogPath: dir, FileName: "test.log", Level: "debug"}, "release"))
	zap.L().Info("hello")
	_ = zap.L().Sync()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(&config.LogConfig{LogPath: t.TempDir(), Level: "loud"}, "release"))
}

func TestGinRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinLogger(), GinRecovery(false))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
