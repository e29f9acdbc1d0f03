package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
)

// UserFinder is the storage port used for credential lookup.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer is the token port used after a successful verification.
type TokenIssuer interface {
	Issue(user UserClaim, ttl time.Duration) (string, error)
}

// Login outcomes reported to the observer.
const (
	LoginSuccess       = "success"
	LoginNotFound      = "not_found"
	LoginWrongPassword = "wrong_password"
	LoginError         = "error"
)

// Service implements the login use case and exposes password hashing to
// the user management flows.
type Service struct {
	users    UserFinder
	tokens   TokenIssuer
	hasher   PasswordHasher
	tokenTTL time.Duration
	logger   logging.Logger
	observe  func(result string)
}

// Option customizes a Service.
type Option func(*Service)

// WithLoginObserver registers f to be called once per login attempt with
// one of the Login* outcome constants.
func WithLoginObserver(f func(result string)) Option {
	return func(s *Service) { s.observe = f }
}

// NewService wires the ports together. tokenTTL is the lifetime of every
// issued token.
func NewService(users UserFinder, tokens TokenIssuer, hasher PasswordHasher, tokenTTL time.Duration, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		tokenTTL: tokenTTL,
		logger:   logger.With("module", "auth"),
		observe:  func(string) {},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login verifies the credentials and returns a signed token.
//
// Errors: common.ErrorNotFound when no user has the email,
// common.ErrorUnauthorized when the password does not match,
// common.ErrorInternal for storage or signing failures. No token is ever
// returned together with an error.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = models.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.observe(LoginNotFound)
			s.logger.Info(ctx, "login rejected: unknown email", "email", email)
			return "", common.ErrorNotFound
		}
		s.observe(LoginError)
		s.logger.Error(ctx, "login lookup failed", "email", email, "error", err)
		return "", common.ErrorInternal
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.observe(LoginError)
		s.logger.Error(ctx, "stored password hash unusable", "user_id", user.ID)
		return "", common.ErrorInternal
	}
	if !match {
		s.observe(LoginWrongPassword)
		s.logger.Info(ctx, "login rejected: wrong password", "user_id", user.ID)
		return "", common.ErrorUnauthorized
	}

	token, err := s.tokens.Issue(NewUserClaim(user.WithoutSecrets()), s.tokenTTL)
	if err != nil {
		s.observe(LoginError)
		s.logger.Error(ctx, "token issue failed", "user_id", user.ID, "error", err)
		return "", common.ErrorInternal
	}

	s.observe(LoginSuccess)
	s.logger.Info(ctx, "login succeeded", "user_id", user.ID)
	return token, nil
}

// HashPassword hashes a new or changed password before it is stored.
func (s *Service) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}
