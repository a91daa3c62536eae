package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mailwing/internal/pkg/response"
)

const loginLimiterSize = 4096

type loginLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts *expirable.LRU[string, int]
	now      func() time.Time
}

// LoginRateLimit bounds failed-login bursts per email/IP pair. Entries expire
// with the window; the LRU keeps memory bounded under key churn. A handler
// downstream clears the counter on successful login via MarkLoginOK.
func LoginRateLimit(window time.Duration, max int) gin.HandlerFunc {
	limiter := &loginLimiter{
		window:   window,
		max:      max,
		attempts: expirable.NewLRU[string, int](loginLimiterSize, nil, window),
		now:      time.Now,
	}
	return limiter.handle
}

type loginBody struct {
	Email string `json:"email"`
}

func (l *loginLimiter) handle(c *gin.Context) {
	if l.window <= 0 || l.max <= 0 {
		c.Next()
		return
	}
	key := l.key(c)

	l.mu.Lock()
	count, _ := l.attempts.Get(key)
	if count >= l.max {
		l.mu.Unlock()
		logutil.GetLogger(c.Request.Context()).Warn("login rate limit hit", zap.String("key", key))
		response.Error(c, http.StatusTooManyRequests, "too many login attempts, try again later")
		c.Abort()
		return
	}
	l.attempts.Add(key, count+1)
	l.mu.Unlock()

	c.Set(limiterKeyContextKey, key)
	c.Set(limiterContextKey, l)
	c.Next()
}

const (
	limiterContextKey    = "login_limiter"
	limiterKeyContextKey = "login_limiter_key"
)

// MarkLoginOK forgets the attempt counter for the current request so only
// failed attempts count against the window.
func MarkLoginOK(c *gin.Context) {
	value, ok := c.Get(limiterContextKey)
	if !ok {
		return
	}
	limiter, ok := value.(*loginLimiter)
	if !ok {
		return
	}
	key, _ := c.Get(limiterKeyContextKey)
	if keyStr, ok := key.(string); ok {
		limiter.mu.Lock()
		limiter.attempts.Remove(keyStr)
		limiter.mu.Unlock()
	}
}

// key peeks at the login body without consuming it: binding caches the raw
// bytes, which are put back so the handler can bind the same body again.
func (l *loginLimiter) key(c *gin.Context) string {
	var body loginBody
	err := c.ShouldBindBodyWithJSON(&body)
	if cached, ok := c.Get(gin.BodyBytesKey); ok {
		if data, ok := cached.([]byte); ok {
			c.Request.Body = io.NopCloser(bytes.NewReader(data))
		}
	}
	if err == nil && body.Email != "" {
		return strings.ToLower(body.Email)
	}
	return c.ClientIP()
}
