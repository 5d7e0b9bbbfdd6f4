package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// KeyFunc 限流维度
type KeyFunc func(c *gin.Context) string

// slidingWindow 每个 key 保留窗口内的请求时间戳
type slidingWindow struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	store  map[string][]time.Time
}

func newSlidingWindow(max int, window time.Duration) *slidingWindow {
	w := &slidingWindow{max: max, window: window, store: make(map[string][]time.Time)}
	// 定期清理过期数据
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			w.sweep(time.Now())
		}
	}()
	return w
}

// allow 记录一次请求，超过上限返回 false
func (w *slidingWindow) allow(key string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := prune(w.store[key], now.Add(-w.window))
	if len(ts) >= w.max {
		w.store[key] = ts
		return false
	}
	w.store[key] = append(ts, now)
	return true
}

func (w *slidingWindow) sweep(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := now.Add(-w.window)
	for key, ts := range w.store {
		if ts = prune(ts, cutoff); len(ts) == 0 {
			delete(w.store, key)
		} else {
			w.store[key] = ts
		}
	}
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// RateLimit 通用限流：每个 key 在 window 内最多 maxRequests 次，超过返回 429
func RateLimit(maxRequests int, window time.Duration, key KeyFunc, message string) gin.HandlerFunc {
	w := newSlidingWindow(maxRequests, window)
	return func(c *gin.Context) {
		if !w.allow(key(c), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": message,
			})
			return
		}
		c.Next()
	}
}

// LoginRateLimit 登录接口按 IP 限流
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return RateLimit(maxAttempts, window, ClientIPKey, "too many login attempts, please try again later")
}

// InsightRateLimit AI 洞察接口按用户限流，需放在 JWTAuth 之后
func InsightRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return RateLimit(maxRequests, window, UserKey, "too many insight requests, please try again later")
}

// ClientIPKey 按客户端 IP
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// UserKey 按登录用户，未登录时退回 IP
func UserKey(c *gin.Context) string {
	if id := GetCurrentUserID(c); id != 0 {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return "ip:" + c.ClientIP()
}
