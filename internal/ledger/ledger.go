// Package ledger records true/fake votes on alerts, at most one per user and
// alert, and keeps the alert's vote counters equal to its vote rows.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mr1hm/go-alert-board/internal/models"
	"github.com/mr1hm/go-alert-board/internal/repository"
)

type Store interface {
	InTx(ctx context.Context, fn func(tx repository.Tx) error) error
}

type Publisher interface {
	Broadcast(e *models.Event)
}

type Ledger struct {
	store     Store
	publisher Publisher
}

func New(store Store, publisher Publisher) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
	}
}

// CastVote records userID's vote on alertID and returns the alert with its
// updated counters. The existence check, the insert and the counter
// increment share one transaction; the votes primary key rejects a
// concurrent duplicate that slips past the check.
func (l *Ledger) CastVote(ctx context.Context, alertID, userID string, kind models.VoteKind) (*models.Alert, error) {
	counter, ok := repository.CounterForVote(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown vote kind %q", models.ErrInvalidInput, kind)
	}

	var updated *models.Alert
	err := l.store.InTx(ctx, func(tx repository.Tx) error {
		alert, err := tx.GetAlert(ctx, alertID)
		if err != nil {
			return err
		}
		if alert == nil {
			return fmt.Errorf("%w: alert %s", models.ErrNotFound, alertID)
		}

		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return models.ErrUnknownUser
		}

		voted, err := tx.HasVoted(ctx, alertID, userID)
		if err != nil {
			return err
		}
		if voted {
			return models.ErrDuplicateVote
		}

		if err := tx.AddVote(ctx, &models.Vote{AlertID: alertID, UserID: userID, Kind: kind}); err != nil {
			return err
		}
		if err := tx.IncrementCounter(ctx, alertID, counter); err != nil {
			return err
		}

		updated, err = tx.GetAlert(ctx, alertID)
		return err
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		slog.Error("vote failed", "alert_id", alertID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
	}

	slog.Info("vote recorded", "alert_id", alertID, "user_id", userID, "kind", kind,
		"verified_votes", updated.VerifiedVotes, "discard_votes", updated.DiscardVotes)

	if l.publisher != nil {
		l.publisher.Broadcast(&models.Event{Kind: models.EventAlertUpdated, Alert: updated})
	}
	return updated, nil
}

func isDomainErr(err error) bool {
	return errors.Is(err, models.ErrDuplicateVote) ||
		errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrUnknownUser)
}
