package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/josesc03/bookintokback/pkg/response"
)

const (
	UserIDKey     = "user_id"
	UsernameKey   = "username"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// Identity is the result of a successful token verification.
type Identity struct {
	UserID   string
	Username string
}

// TokenVerifier validates a bearer token with the identity collaborator.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AuthMiddleware validates bearer tokens on incoming requests.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth returns a Gin middleware that validates bearer tokens.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}

		id, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid credential")
			c.Abort()
			return
		}

		c.Set(UserIDKey, id.UserID)
		c.Set(UsernameKey, id.Username)

		c.Next()
	}
}

// BearerToken extracts the bearer token from the Authorization header,
// falling back to the "token" query parameter (websocket clients cannot
// always set headers).
func BearerToken(r *http.Request) string {
	header := r.Header.Get(AuthHeaderKey)
	if strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	}
	return r.URL.Query().Get("token")
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetUsername extracts the username from the Gin context.
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(UsernameKey); exists {
		return username.(string)
	}
	return ""
}
