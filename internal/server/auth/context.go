package auth

import (
	"context"

	"github.com/dmitrijs2005/usersvc/internal/server/models"
)

type ctxKey string

const authContextKey ctxKey = "authContext"

// AuthContext is the decoded identity of an authenticated request. It lives
// only as long as the request context.
type AuthContext struct {
	ID    int64
	Email string
	Role  models.Role
}

func newAuthContext(c *Claims) *AuthContext {
	return &AuthContext{ID: c.User.ID, Email: c.User.Email, Role: c.User.Role}
}

// WithAuthContext attaches ac to ctx.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext returns the AuthContext attached by the authentication guard.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(*AuthContext)
	return ac, ok && ac != nil
}
