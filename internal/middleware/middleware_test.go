package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeKeyStore struct {
	live    map[string]*models.Client
	sandbox map[string]*models.Client
}

func (f *fakeKeyStore) GetByAPIKey(ctx context.Context, key string) (*models.Client, error) {
	if c, ok := f.live[key]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeKeyStore) GetBySandboxKey(ctx context.Context, key string) (*models.Client, error) {
	if c, ok := f.sandbox[key]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newAuthRouter() *gin.Engine {
	client := &models.Client{ID: 3, ClientID: "erp", IsActive: true, IPWhitelist: []string{"192.0.2.1"}}
	store := &fakeKeyStore{
		live:    map[string]*models.Client{"live-key": client},
		sandbox: map[string]*models.Client{"sandbox-key": client},
	}
	mw := NewAuthMiddleware(service.NewAuthService(store))

	r := gin.New()
	r.GET("/v1/ping", mw.Handle(), func(c *gin.Context) {
		c.JSON(200, gin.H{
			"clientId": GetClient(c).ClientID,
			"sandbox":  IsSandbox(c),
		})
	})
	return r
}

func authRequest(token, clientID, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Client-Id", clientID)
	req.RemoteAddr = ip + ":5555"
	return req
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		clientID string
		ip       string
		status   int
		body     string
	}{
		{"live key", "live-key", "erp", "192.0.2.1", 200, `"sandbox":false`},
		{"sandbox key", "sandbox-key", "erp", "192.0.2.1", 200, `"sandbox":true`},
		{"missing token", "", "erp", "192.0.2.1", 401, "INVALID_TOKEN"},
		{"unknown token", "nope", "erp", "192.0.2.1", 401, "INVALID_TOKEN"},
		{"client mismatch", "live-key", "other", "192.0.2.1", 401, "INVALID_CLIENT"},
		{"ip not allowed", "live-key", "erp", "198.51.100.7", 401, "INVALID_IP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, authRequest(tt.token, tt.clientID, tt.ip))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestAuthMiddleware_ThrottlesInvalidAttempts(t *testing.T) {
	r := newAuthRouter()
	var last int
	for i := 0; i < 6; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authRequest("nope", "erp", "203.0.113.9"))
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestInvalidAuthRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rl := newInvalidAuthRateLimiter(2, time.Minute, func() time.Time { return now })

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("a"))

	rl.sweep()
	assert.Len(t, rl.attempts, 1)
}

func TestGetContact(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetContact(c))

	c.Request.Header.Set("X-Contact-Email", " jane@example.com ")
	contact := GetContact(c)
	if assert.NotNil(t, contact) {
		assert.Equal(t, "jane@example.com", contact.Key())
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"ADMIN.EXAMPLE.COM", "localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(200) })

	tests := []struct {
		name    string
		method  string
		headers map[string]string
		code    int
		allow   string
	}{
		{"default port stripped", http.MethodGet, map[string]string{"Origin": "https://admin.example.com:443"}, 200, "https://admin.example.com:443"},
		{"dev port kept", http.MethodGet, map[string]string{"Origin": "http://localhost:3000"}, 200, "http://localhost:3000"},
		{"other dev port", http.MethodGet, map[string]string{"Origin": "http://localhost:3001"}, 200, ""},
		{"referer fallback", http.MethodGet, map[string]string{"Referer": "https://admin.example.com/payments?page=2"}, 200, "https://admin.example.com"},
		{"preflight from unknown origin", http.MethodOptions, map[string]string{"Origin": "https://evil.example.net"}, http.StatusNoContent, ""},
		{"no origin", http.MethodGet, nil, 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/x", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
			if tt.allow == "" {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCheckoutRateLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/pay", NewCheckoutRateLimiter(1, 2).Handle(), func(c *gin.Context) { c.Status(http.StatusOK) })

	submit := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, submit("198.51.100.7:4000"))
	assert.Equal(t, http.StatusOK, submit("198.51.100.7:4001"))
	assert.Equal(t, http.StatusTooManyRequests, submit("198.51.100.7:4002"))
	assert.Equal(t, http.StatusOK, submit("198.51.100.8:4000"))
}

func TestCheckoutRateLimiter_Disabled(t *testing.T) {
	rl := NewCheckoutRateLimiter(0, 0)
	for i := 0; i < 50; i++ {
		assert.True(t, rl.limiter("203.0.113.1").Allow())
	}
}

func TestJWTMiddleware(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	token, err := utils.GenerateJWT(3, "ops@example.com")
	if !assert.NoError(t, err) {
		return
	}

	r := gin.New()
	r.GET("/admin", NewJWTMiddleware().Handle(), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetAdminID(c))
	})

	tests := []struct {
		name   string
		header string
		accept string
		query  string
		want   int
	}{
		{"bearer", "Bearer " + token, "", "", http.StatusOK},
		{"stream query", "", "text/event-stream", "?token=" + token, http.StatusOK},
		{"query without stream", "", "application/json", "?token=" + token, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "3", w.Body.String())
			}
		})
	}
}
