package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

func newTokenService(t *testing.T, secret string) *TokenService {
	t.Helper()
	s, err := NewTokenService(secret)
	if err != nil {
		t.Fatalf("NewTokenService error: %v", err)
	}
	return s
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenService(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueAndValidate_Success(t *testing.T) {
	t.Parallel()

	s := newTokenService(t, "super-secret")
	img := "a.png"
	want := UserClaim{ID: 42, Name: "Ann", Email: "a@x.com", Role: models.RoleEditor, ProfileImage: &img}

	tok, err := s.Issue(want, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := s.Validate(tok)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.User.ID != want.ID || claims.User.Email != want.Email || claims.User.Role != want.Role || claims.User.Name != want.Name {
		t.Fatalf("claims mismatch: got %+v want %+v", claims.User, want)
	}
	if claims.User.ProfileImage == nil || *claims.User.ProfileImage != img {
		t.Fatalf("profile image not carried: %+v", claims.User.ProfileImage)
	}
	if claims.Subject != "42" {
		t.Fatalf("subject mismatch: %q", claims.Subject)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Sub(time.Now()) > time.Hour {
		t.Fatalf("unexpected expiry: %v", claims.ExpiresAt)
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	s := newTokenService(t, "secret")

	tok, err := s.Issue(UserClaim{ID: 1}, -1*time.Second)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = s.Validate(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expired must match ErrInvalidToken, got %v", err)
	}
}

func TestValidate_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	s := newTokenService(t, "secret")
	start := time.Now()
	s.now = func() time.Time { return start }

	tok, err := s.Issue(UserClaim{ID: 1}, time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := s.Validate(tok); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	s.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := s.Validate(tok); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected expiry after ttl, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTokenService(t, "right-secret").Issue(UserClaim{ID: 2}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = newTokenService(t, "wrong-secret").Validate(tok)
	if !errors.Is(err, common.ErrTokenSignature) {
		t.Fatalf("expected common.ErrTokenSignature, got %v", err)
	}
}

func TestValidate_MalformedString(t *testing.T) {
	t.Parallel()

	s := newTokenService(t, "k")
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := s.Validate(tok); !errors.Is(err, common.ErrTokenMalformed) {
			t.Fatalf("token %q: expected common.ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := "k"
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		User:             UserClaim{ID: 1, Role: models.RoleAdmin},
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := newTokenService(t, secret).Validate(signed); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected rejection of HS512 token, got %v", err)
	}
}

func TestValidate_RequiresExpiry(t *testing.T) {
	t.Parallel()

	secret := "k"
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{User: UserClaim{ID: 1}}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := newTokenService(t, secret).Validate(signed); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("token without exp must be rejected, got %v", err)
	}
}

func TestNewUserClaim_DropsHash(t *testing.T) {
	t.Parallel()

	c := NewUserClaim(&models.User{ID: 3, Email: "e@x.com", PasswordHash: "secret-hash", Role: models.RoleUser})
	if c.ID != 3 || c.Email != "e@x.com" || c.Role != models.RoleUser {
		t.Fatalf("unexpected claim: %+v", c)
	}
}
