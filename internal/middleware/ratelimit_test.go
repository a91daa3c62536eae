package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// The stub handler binds the JSON body the same way the real login handler
// does, so the tests fail if the limiter consumes the request body.
func newLoginTestRouter(window time.Duration, max int, succeed func() bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", LoginRateLimit(window, max), func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if succeed() {
			MarkLoginOK(c)
			c.JSON(http.StatusOK, gin.H{"email": req.Email})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	})
	return r
}

func postLogin(r *gin.Engine, email string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginRateLimitBlocksAfterMaxAttempts(t *testing.T) {
	r := newLoginTestRouter(time.Minute, 5, func() bool { return false })

	for i := 0; i < 5; i++ {
		w := postLogin(r, "alice@example.com")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := postLogin(r, "alice@example.com")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestLoginRateLimitKeyedByEmail(t *testing.T) {
	r := newLoginTestRouter(time.Minute, 2, func() bool { return false })

	require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	require.Equal(t, http.StatusTooManyRequests, postLogin(r, "alice@example.com").Code)

	// different email, separate counter
	require.Equal(t, http.StatusUnauthorized, postLogin(r, "bob@example.com").Code)
}

func TestLoginRateLimitEmailCaseInsensitive(t *testing.T) {
	r := newLoginTestRouter(time.Minute, 2, func() bool { return false })

	require.Equal(t, http.StatusUnauthorized, postLogin(r, "Alice@Example.com").Code)
	require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	require.Equal(t, http.StatusTooManyRequests, postLogin(r, "ALICE@EXAMPLE.COM").Code)
}

func TestLoginRateLimitSuccessResetsCounter(t *testing.T) {
	var ok bool
	r := newLoginTestRouter(time.Minute, 2, func() bool { return ok })

	require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	ok = true
	require.Equal(t, http.StatusOK, postLogin(r, "alice@example.com").Code)

	// the counter restarted after the successful login
	ok = false
	require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	require.Equal(t, http.StatusTooManyRequests, postLogin(r, "alice@example.com").Code)
}

func TestLoginRateLimitPreservesRequestBody(t *testing.T) {
	r := newLoginTestRouter(time.Minute, 5, func() bool { return true })

	w := postLogin(r, "alice@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	// the handler re-read the body the limiter already inspected
	require.Contains(t, w.Body.String(), "alice@example.com")
}

func TestLoginRateLimitDisabled(t *testing.T) {
	r := newLoginTestRouter(0, 0, func() bool { return false })

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusUnauthorized, postLogin(r, "alice@example.com").Code)
	}
}
