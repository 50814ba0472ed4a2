package client

import (
	"context"
	"fmt"

	"github.com/josesc03/bookintokback/pkg/jwt"
	"github.com/josesc03/bookintokback/pkg/middleware"
)

// AuthClient is the identity collaborator: it turns a bearer token into an
// opaque user identity or fails. All failures are surfaced uniformly as
// unauthorized by the callers.
type AuthClient struct {
	manager *jwt.Manager
}

// NewAuthClient creates a verifier backed by the local JWT manager.
func NewAuthClient(manager *jwt.Manager) *AuthClient {
	return &AuthClient{manager: manager}
}

// Verify validates a token and returns the identity it asserts.
func (c *AuthClient) Verify(_ context.Context, token string) (*middleware.Identity, error) {
	claims, err := c.manager.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return &middleware.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

var _ middleware.TokenVerifier = (*AuthClient)(nil)
