package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freemirror/yamdb-final/internal/testutil"
)

func setupLimitedRouter(l Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/token", RateLimit(l, "auth"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func hit(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRedisLimiter_BlocksOverLimit(t *testing.T) {
	mr := testutil.SetupTestRedis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Server.Addr()})
	t.Cleanup(func() { client.Close() })

	router := setupLimitedRouter(NewRedisLimiter(client, RateLimiterConfig{MaxRequests: 3, Window: time.Minute}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code, "request %d", i+1)
	}

	w := hit(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retry)
	assert.Contains(t, w.Body.String(), "detail")

	// other clients have their own budget
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.2").Code)

	// the window expires
	mr.Server.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr := testutil.SetupTestRedis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	router := setupLimitedRouter(NewRedisLimiter(client, RateLimiterConfig{MaxRequests: 1, Window: time.Minute}))

	mr.Server.Close()

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)
}

func TestLocalLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(RateLimiterConfig{MaxRequests: 2, Window: time.Minute})
	l.now = func() time.Time { return now }
	router := setupLimitedRouter(l)

	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)

	w := hit(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, hit(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "10.0.0.1").Code)
}

func TestLocalLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(RateLimiterConfig{MaxRequests: 5, Window: time.Minute})
	l.now = func() time.Time { return now }

	_, _, _ = l.Allow(context.Background(), "stale")
	now = now.Add(2 * time.Minute)
	l.sweep(now)

	assert.Empty(t, l.buckets)
}
