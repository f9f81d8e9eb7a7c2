package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mr1hm/go-alert-board/internal/models"
	"github.com/mr1hm/go-alert-board/internal/repository"
)

func setupProvider(t *testing.T, ttl time.Duration) *Provider {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := NewProvider(db, "test-secret", ttl)
	p.cost = bcrypt.MinCost
	return p
}

func TestSignUpSignIn(t *testing.T) {
	p := setupProvider(t, time.Hour)
	ctx := context.Background()

	user, err := p.SignUp(ctx, SignUpRequest{
		Name:     "Alice Doe",
		Email:    "alice@example.com",
		Phone:    "+1 555 0100",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if user.ID == "" || user.FullName != "Alice Doe" {
		t.Errorf("unexpected user %+v", user)
	}

	sess, err := p.SignIn(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if sess.UserID != user.ID {
		t.Errorf("expected session for %s, got %s", user.ID, sess.UserID)
	}

	current, err := p.CurrentUser(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if current.Email != "alice@example.com" || current.Phone != "+1 555 0100" {
		t.Errorf("unexpected current user %+v", current)
	}
}

func TestSignUp_Rejections(t *testing.T) {
	p := setupProvider(t, time.Hour)
	ctx := context.Background()

	if _, err := p.SignUp(ctx, SignUpRequest{Name: "Alice", Email: "alice@example.com", Password: "password1"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	tests := []struct {
		name string
		req  SignUpRequest
	}{
		{"duplicate email", SignUpRequest{Name: "Other", Email: "alice@example.com", Password: "password2"}},
		{"short password", SignUpRequest{Name: "Bob", Email: "bob@example.com", Password: "short"}},
		{"invalid email", SignUpRequest{Name: "Bob", Email: "not-an-email", Password: "password1"}},
		{"missing name", SignUpRequest{Name: "  ", Email: "carol@example.com", Password: "password1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SignUp(ctx, tt.req)
			if !errors.Is(err, models.ErrAuthFailure) {
				t.Errorf("expected ErrAuthFailure, got %v", err)
			}
		})
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	p := setupProvider(t, time.Hour)
	ctx := context.Background()

	if _, err := p.SignUp(ctx, SignUpRequest{Name: "Alice", Email: "alice@example.com", Password: "password1"}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if _, err := p.SignIn(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, models.ErrAuthFailure) {
		t.Errorf("expected ErrAuthFailure for wrong password, got %v", err)
	}
	if _, err := p.SignIn(ctx, "nobody@example.com", "password1"); !errors.Is(err, models.ErrAuthFailure) {
		t.Errorf("expected ErrAuthFailure for unknown email, got %v", err)
	}
}

func TestSession_RejectsBadTokens(t *testing.T) {
	p := setupProvider(t, time.Hour)

	other := NewProvider(nil, "another-secret", time.Hour)
	foreign, err := other.issue("u1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign none token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign.AccessToken},
		{"unsigned", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Session(tt.token); !errors.Is(err, models.ErrAuthFailure) {
				t.Errorf("expected ErrAuthFailure, got %v", err)
			}
		})
	}
}

func TestSession_Expired(t *testing.T) {
	p := setupProvider(t, -time.Minute)

	sess, err := p.issue("u1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := p.Session(sess.AccessToken); !errors.Is(err, models.ErrAuthFailure) {
		t.Errorf("expected ErrAuthFailure for expired token, got %v", err)
	}
}

func TestCurrentUser_UnknownUser(t *testing.T) {
	p := setupProvider(t, time.Hour)

	// A token the provider signed for a user the registry never stored
	sess, err := p.issue("ghost")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := p.CurrentUser(context.Background(), sess.AccessToken); !errors.Is(err, models.ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}
