package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/config"
)

func newTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
	return r
}

func get(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	r := newTestRouter(RateLimit(config.RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		Enabled:           true,
	}))

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(r))
	}
}

func TestRateLimitBlocksBeyondBurst(t *testing.T) {
	r := newTestRouter(RateLimit(config.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		Enabled:           true,
	}))

	assert.Equal(t, http.StatusOK, get(r))
	assert.Equal(t, http.StatusOK, get(r))
	assert.Equal(t, http.StatusTooManyRequests, get(r))
}

func TestRateLimitDisabled(t *testing.T) {
	r := newTestRouter(RateLimit(config.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		Enabled:           false,
	}))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, get(r))
	}
}

func TestGlobalRateLimitSharedAcrossClients(t *testing.T) {
	r := newTestRouter(GlobalRateLimit(config.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		Enabled:           true,
	}))

	// One bucket for everyone: a second client cannot refill it
	assert.Equal(t, http.StatusOK, getFrom(r, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, getFrom(r, "10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, getFrom(r, "10.0.0.3"))
}

func getFrom(r *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = ip + ":4312"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestCORSHeaders(t *testing.T) {
	r := newTestRouter(CORS(DefaultCORSConfig()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}
