package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaim is the user representation embedded in every token.
// It has no field for the password hash.
type UserClaim struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name,omitempty"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	ProfileImage *string     `json:"profileImage,omitempty"`
}

// NewUserClaim copies the public fields of u.
func NewUserClaim(u *models.User) UserClaim {
	return UserClaim{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
	}
}

// Claims are the standard registered claims plus the embedded user.
type Claims struct {
	jwt.RegisteredClaims
	User UserClaim `json:"user"`
}

// TokenService signs and validates HS256 bearer tokens with a process-wide
// secret. It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService fails when secret is empty; the server must not start
// without a signing key.
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token service: empty signing secret")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for user that expires ttl from now.
func (s *TokenService) Issue(user UserClaim, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		User: user,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign error: %w", err)
	}

	return tokenString, nil
}

// Validate checks signature and expiry and returns the decoded claims.
// Failures are one of common.ErrTokenMalformed, common.ErrTokenExpired or
// common.ErrTokenSignature, all of which match common.ErrInvalidToken.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrTokenSignature
	default:
		return common.ErrTokenMalformed
	}
}
