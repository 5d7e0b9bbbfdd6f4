package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoginRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 短窗口 200ms，最多 2 次
	router := gin.New()
	router.Use(LoginRateLimit(2, 200*time.Millisecond))
	router.POST("/login", func(c *gin.Context) {
		c.String(200, "ok")
	})

	doReq := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/login", nil)
		req.Header.Set("X-Real-IP", ip)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 同一 IP 连续 3 次，第 3 次应返回 429
	w1 := doReq("192.168.1.1")
	w2 := doReq("192.168.1.1")
	w3 := doReq("192.168.1.1")

	assert.Equal(t, 200, w1.Code)
	assert.Equal(t, 200, w2.Code)
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Contains(t, w3.Body.String(), "too many login attempts")
	assert.Contains(t, w3.Body.String(), "429")

	// 不同 IP 互不影响
	w4 := doReq("192.168.1.2")
	w5 := doReq("192.168.1.2")
	assert.Equal(t, 200, w4.Code)
	assert.Equal(t, 200, w5.Code)

	// 窗口过后恢复
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 200, doReq("192.168.1.1").Code)
}

func TestInsightRateLimit_PerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var userID uint
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	router.Use(InsightRateLimit(1, time.Minute))
	router.GET("/insight", func(c *gin.Context) {
		c.String(200, "ok")
	})

	get := func(id uint) int {
		userID = id
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/insight", nil))
		return w.Code
	}

	assert.Equal(t, 200, get(1))
	assert.Equal(t, http.StatusTooManyRequests, get(1))
	assert.Equal(t, 200, get(2))
}

func TestSlidingWindow_Sweep(t *testing.T) {
	w := &slidingWindow{max: 5, window: time.Second, store: make(map[string][]time.Time)}
	now := time.Now()

	assert.True(t, w.allow("a", now.Add(-2*time.Second)))
	assert.True(t, w.allow("b", now))

	w.sweep(now)
	_, hasA := w.store["a"]
	_, hasB := w.store["b"]
	assert.False(t, hasA)
	assert.True(t, hasB)
}

func TestUserKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "10.0.0.1:1234"

	assert.Equal(t, "ip:10.0.0.1", UserKey(c))
	c.Set("userID", uint(7))
	assert.Equal(t, "user:7", UserKey(c))
}
