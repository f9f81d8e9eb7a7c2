package repository

import (
	"context"
	"errors"

	"github.com/mr1hm/go-alert-board/internal/models"
)

// ErrConflict is returned when a write collides with a uniqueness constraint.
var ErrConflict = errors.New("conflicting row already exists")

// Counter names one of the denormalized counters on an alert.
type Counter string

const (
	CounterVerified Counter = "verified_votes"
	CounterDiscard  Counter = "discard_votes"
	CounterComments Counter = "comments_count"
)

func CounterForVote(kind models.VoteKind) (Counter, bool) {
	switch kind {
	case models.VoteVerify:
		return CounterVerified, true
	case models.VoteDiscard:
		return CounterDiscard, true
	default:
		return "", false
	}
}

// Getters return (nil, nil) when the row does not exist.
type UserRepository interface {
	CreateAccount(ctx context.Context, u *models.User, passwordHash string) error
	GetCredential(ctx context.Context, email string) (userID, passwordHash string, err error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateUserLocation(ctx context.Context, id string, c models.Coordinate) error
	ListUsersWithLocation(ctx context.Context) ([]models.User, error)
}

type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
}

type VoteRepository interface {
	HasVoted(ctx context.Context, alertID, userID string) (bool, error)
	ListVotes(ctx context.Context, alertID string) ([]models.Vote, error)
}

type CommentRepository interface {
	ListComments(ctx context.Context, alertID string) ([]models.Comment, error)
}

// Tx is the set of operations available inside a single store transaction.
// AddVote reports models.ErrDuplicateVote when the (alert, user) pair
// already has a row, IncrementCounter reports models.ErrNotFound when the
// alert does not exist.
type Tx interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	HasVoted(ctx context.Context, alertID, userID string) (bool, error)
	AddVote(ctx context.Context, v *models.Vote) error
	AddComment(ctx context.Context, c *models.Comment) error
	IncrementCounter(ctx context.Context, alertID string, c Counter) error
}

type Store interface {
	UserRepository
	AlertRepository
	VoteRepository
	CommentRepository
	// InTx runs fn in one transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
