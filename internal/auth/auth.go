// Package auth is the identity provider: password sign-up and sign-in with
// HS256 bearer tokens. The rest of the service only sees ErrAuthFailure.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mr1hm/go-alert-board/internal/models"
	"github.com/mr1hm/go-alert-board/internal/repository"
)

const MinPasswordLength = 8

type Store interface {
	CreateAccount(ctx context.Context, u *models.User, passwordHash string) error
	GetCredential(ctx context.Context, email string) (userID, passwordHash string, err error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type SignUpRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Provider struct {
	store  Store
	secret []byte
	ttl    time.Duration
	cost   int
}

func NewProvider(store Store, secret string, ttl time.Duration) *Provider {
	return &Provider{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
	}
}

func (p *Provider) SignUp(ctx context.Context, req SignUpRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrAuthFailure)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email", models.ErrAuthFailure)
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrAuthFailure, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAuthFailure, err)
	}

	user := &models.User{
		FullName: name,
		Phone:    strings.TrimSpace(req.Phone),
		Email:    addr.Address,
	}
	if err := p.store.CreateAccount(ctx, user, string(hash)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", models.ErrAuthFailure)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	return user, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	userID, hash, err := p.store.GetCredential(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	if userID == "" {
		return nil, models.ErrAuthFailure
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, models.ErrAuthFailure
	}
	return p.issue(userID)
}

// Session validates token and returns the session it encodes.
func (p *Provider) Session(token string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, models.ErrAuthFailure
	}

	return &Session{
		AccessToken: token,
		UserID:      claims.Subject,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// CurrentUser returns the registered user behind token. A valid token whose
// user is missing from the registry yields models.ErrUnknownUser.
func (p *Provider) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	sess, err := p.Session(token)
	if err != nil {
		return nil, err
	}
	u, err := p.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	if u == nil {
		return nil, models.ErrUnknownUser
	}
	return u, nil
}

func (p *Provider) issue(userID string) (*Session, error) {
	now := time.Now()
	expires := now.Add(p.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("error signing token: %w", err)
	}

	return &Session{
		AccessToken: signed,
		UserID:      userID,
		ExpiresAt:   expires,
	}, nil
}
