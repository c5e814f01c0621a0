package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/jewel_catalog/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/admin", NewJWTMiddleware().Handle(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c))
	})
	return r
}

func doRequest(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	adminToken, err := utils.GenerateJWT(1, "admin@example.com", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	staffToken, err := utils.GenerateJWT(2, "staff@example.com", utils.RoleStaff, time.Hour)
	require.NoError(t, err)

	r := newProtectedRouter(utils.RoleAdmin)

	w := doRequest(r, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@example.com", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer "+staffToken).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer garbage").Code)
}

func TestJWTMiddleware_RateLimitsInvalidAttempts(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	r := newProtectedRouter()

	for i := 0; i < maxInvalidAttempts; i++ {
		assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer bad").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "Bearer bad").Code)
}

func TestInvalidAuthRateLimiter_WindowExpires(t *testing.T) {
	rl := NewInvalidAuthRateLimiter()
	now := time.Now()
	rl.now = func() time.Time { return now }

	for i := 0; i < maxInvalidAttempts; i++ {
		rl.Record("1.2.3.4")
	}
	assert.False(t, rl.Allowed("1.2.3.4"))
	assert.True(t, rl.Allowed("5.6.7.8"))

	now = now.Add(2 * attemptWindow)
	assert.True(t, rl.Allowed("1.2.3.4"))
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://admin.devjewels.com", "shop.example.com:8443"}))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/x", ok)
	r.OPTIONS("/x", ok)

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://admin.devjewels.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.devjewels.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// Bare host entries match, and the default port is stripped before lookup.
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://shop.example.com:8443")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://shop.example.com:8443", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://admin.devjewels.com:443")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://admin.devjewels.com:443", w.Header().Get("Access-Control-Allow-Origin"))
}
