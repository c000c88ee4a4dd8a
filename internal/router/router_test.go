package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"nexus_chat_server/internal/handler"
	"nexus_chat_server/internal/service"
)

func TestProtectedRoutesRequireToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewRouter(handler.NewHandlers(&service.Services{}, nil, nil)).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/v1/profile/me", "/api/v1/nexus", "/api/v1/dm", "/ws"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
