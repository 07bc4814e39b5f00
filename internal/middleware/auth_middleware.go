package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_authnet/internal/models"
	"github.com/GTDGit/gtd_authnet/internal/service"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// AuthMiddleware handles API key authentication, client validation, and IP checks.
type AuthMiddleware struct {
	authService *service.AuthService
	rateLimiter *InvalidAuthRateLimiter
}

// NewAuthMiddleware constructs a new AuthMiddleware.
func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		rateLimiter: NewInvalidAuthRateLimiter(),
	}
}

// Handle returns a Gin middleware function that enforces authentication.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Extract Bearer token
		token, ok := bearerToken(c)
		if !ok {
			m.handleAuthError(c, "INVALID_TOKEN", "Missing or invalid authorization header")
			return
		}

		// 2. Validate API key (live or sandbox)
		client, isSandbox, err := m.authService.ValidateAPIKey(c.Request.Context(), token)
		if err != nil || client == nil {
			m.handleAuthError(c, "INVALID_TOKEN", "Invalid API token")
			return
		}

		// 3. Check if client is active
		if !client.IsActive {
			m.handleAuthError(c, "INVALID_CLIENT", "Client is not active")
			return
		}

		// 4. Validate Client ID header
		if !m.authService.ValidateClientID(client, c.GetHeader("X-Client-Id")) {
			m.handleAuthError(c, "INVALID_CLIENT", "Client ID mismatch")
			return
		}

		// 5. Validate IP whitelist
		if !m.authService.IsIPAllowed(client, c.ClientIP()) {
			m.handleAuthError(c, "INVALID_IP", "Request from unauthorized IP address")
			return
		}

		c.Set("client", client)
		c.Set("is_sandbox", isSandbox)
		c.Set("client_id", client.ID)

		c.Next()
	}
}

func (m *AuthMiddleware) handleAuthError(c *gin.Context, code, message string) {
	if !m.rateLimiter.Allow(c.ClientIP()) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, 401, code, message)
	c.Abort()
}

// GetClient returns the authenticated client from context.
func GetClient(c *gin.Context) *models.Client {
	client, ok := c.Get("client")
	if !ok || client == nil {
		return nil
	}
	return client.(*models.Client)
}

// IsSandbox indicates whether the request is in sandbox mode.
func IsSandbox(c *gin.Context) bool {
	return c.GetBool("is_sandbox")
}

// GetContact returns the payer contact named by the X-Contact-Id and
// X-Contact-Email headers, or nil when neither is set.
func GetContact(c *gin.Context) *models.Contact {
	contact := &models.Contact{
		ID:    strings.TrimSpace(c.GetHeader("X-Contact-Id")),
		Email: strings.TrimSpace(c.GetHeader("X-Contact-Email")),
	}
	if contact.Key() == "" {
		return nil
	}
	return contact
}
