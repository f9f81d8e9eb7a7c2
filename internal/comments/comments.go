// Package comments manages the comment thread attached to each alert.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mr1hm/go-alert-board/internal/models"
	"github.com/mr1hm/go-alert-board/internal/repository"
)

const (
	MaxCommentLength = 1000

	// UnknownAuthor is shown for comments whose author is no longer registered.
	UnknownAuthor = "Unknown User"
)

type Store interface {
	InTx(ctx context.Context, fn func(tx repository.Tx) error) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListComments(ctx context.Context, alertID string) ([]models.Comment, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type Publisher interface {
	Broadcast(e *models.Event)
}

type DisplayComment struct {
	ID         string    `json:"id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	Timestamp  string    `json:"timestamp"`
	CreatedAt  time.Time `json:"created_at"`
}

type Thread struct {
	store     Store
	publisher Publisher
}

func NewThread(store Store, publisher Publisher) *Thread {
	return &Thread{
		store:     store,
		publisher: publisher,
	}
}

// PostComment appends a comment by userID to alertID. The author must exist
// in the user registry even when the identity provider already accepted the
// caller. The comment row and the comments_count increment commit together.
func (t *Thread) PostComment(ctx context.Context, alertID, userID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", models.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", models.ErrInvalidInput, MaxCommentLength)
	}

	comment := &models.Comment{AlertID: alertID, UserID: userID, Text: text}
	err := t.store.InTx(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return models.ErrUnknownUser
		}

		alert, err := tx.GetAlert(ctx, alertID)
		if err != nil {
			return err
		}
		if alert == nil {
			return fmt.Errorf("%w: alert %s", models.ErrNotFound, alertID)
		}

		if err := tx.AddComment(ctx, comment); err != nil {
			return err
		}
		return tx.IncrementCounter(ctx, alertID, repository.CounterComments)
	})
	if err != nil {
		if errors.Is(err, models.ErrUnknownUser) || errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		slog.Error("comment failed", "alert_id", alertID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}

	slog.Info("comment posted", "id", comment.ID, "alert_id", alertID, "user_id", userID)

	if t.publisher != nil {
		t.publisher.Broadcast(&models.Event{Kind: models.EventCommentCreated, Comment: comment})
	}
	return comment, nil
}

// List returns the thread oldest first with author names resolved by one
// batch lookup over the distinct authors.
func (t *Thread) List(ctx context.Context, alertID string) ([]DisplayComment, error) {
	alert, err := t.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}
	if alert == nil {
		return nil, fmt.Errorf("%w: alert %s", models.ErrNotFound, alertID)
	}

	comments, err := t.store.ListComments(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}

	seen := make(map[string]bool)
	var authorIDs []string
	for _, c := range comments {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			authorIDs = append(authorIDs, c.UserID)
		}
	}

	names := make(map[string]string, len(authorIDs))
	if len(authorIDs) > 0 {
		users, err := t.store.GetUsersByIDs(ctx, authorIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}

	out := make([]DisplayComment, 0, len(comments))
	for _, c := range comments {
		name, ok := names[c.UserID]
		if !ok {
			name = UnknownAuthor
		}
		out = append(out, DisplayComment{
			ID:         c.ID,
			AuthorName: name,
			Text:       c.Text,
			Timestamp:  c.CreatedAt.Format(time.RFC1123),
			CreatedAt:  c.CreatedAt,
		})
	}
	return out, nil
}
