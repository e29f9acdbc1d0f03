package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
)

// Guard inspects a request before dispatch. It either returns the request
// to pass on (possibly with an enriched context) or an error that ends the
// request.
type Guard func(r *http.Request) (*http.Request, error)

// ErrorHandler writes the rejection for a failed guard.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// TokenValidator is the part of TokenService the guards need.
type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

// TargetFunc extracts the id of the user a request operates on.
type TargetFunc func(r *http.Request) (int64, error)

// Protect wraps h with guards evaluated in order. The first failing guard
// is terminal: onError runs and neither later guards nor h are called.
func Protect(h http.Handler, onError ErrorHandler, guards ...Guard) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, g := range guards {
			next, err := g(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			r = next
		}
		h.ServeHTTP(w, r)
	})
}

// Middleware is Protect in router middleware form.
func Middleware(onError ErrorHandler, guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Protect(next, onError, guards...)
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", common.ErrorUnauthorized)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerScheme) {
		return "", fmt.Errorf("%w: authorization header format must be Bearer {token}", common.ErrorUnauthorized)
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", common.ErrorUnauthorized)
	}

	return token, nil
}

// Authenticate validates the bearer token and attaches the AuthContext.
// Every failure is reported as common.ErrorUnauthorized; the precise reason
// only goes to the debug log.
func Authenticate(v TokenValidator, logger logging.Logger) Guard {
	logger = logger.With("module", "auth_guard")

	return func(r *http.Request) (*http.Request, error) {
		token, err := BearerToken(r)
		if err != nil {
			logger.Debug(r.Context(), "rejected request", "reason", err.Error())
			return nil, common.ErrorUnauthorized
		}

		claims, err := v.Validate(token)
		if err != nil {
			logger.Debug(r.Context(), "rejected token", "reason", err.Error())
			return nil, common.ErrorUnauthorized
		}

		ctx := WithAuthContext(r.Context(), newAuthContext(claims))
		return r.WithContext(ctx), nil
	}
}

// RequireRoles lets the request through only when the caller's role is one
// of roles. It must run after Authenticate.
func RequireRoles(roles ...models.Role) Guard {
	return func(r *http.Request) (*http.Request, error) {
		ac, ok := FromContext(r.Context())
		if !ok {
			return nil, common.ErrorUnauthorized
		}
		if !hasRole(ac.Role, roles) {
			return nil, common.ErrorForbidden
		}
		return r, nil
	}
}

// RequireOwner lets the request through only when the target user id equals
// the caller's id. Callers whose role is in override skip the comparison.
// It must run after Authenticate.
func RequireOwner(target TargetFunc, override ...models.Role) Guard {
	return func(r *http.Request) (*http.Request, error) {
		ac, ok := FromContext(r.Context())
		if !ok {
			return nil, common.ErrorUnauthorized
		}

		id, err := target(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
		}

		if id == ac.ID || hasRole(ac.Role, override) {
			return r, nil
		}
		return nil, common.ErrorForbidden
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
