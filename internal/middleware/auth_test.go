package middleware

import (
	"ai_course_backend/internal/config"
	"ai_course_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func router(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, claims.Email)
	})
	return r
}

func call(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, key string, exp time.Duration) string {
	t.Helper()
	tok, err := util.GenerateJWT("a@x.com", "A", key, exp)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := router(AuthMiddleware(cfg))

	w := call(r, token(t, secret, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@x.com", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, token(t, "other", time.Hour)).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, token(t, secret, -time.Minute)).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "Basic abc").Code)
}

func TestTryAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := router(TryAuthMiddleware(cfg))

	assert.Equal(t, "guest", call(r, "").Body.String())
	assert.Equal(t, "guest", call(r, token(t, "other", time.Hour)).Body.String())
	assert.Equal(t, "a@x.com", call(r, token(t, secret, time.Hour)).Body.String())
}
