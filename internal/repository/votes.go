package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mr1hm/go-alert-board/internal/models"
)

func (s *SQLiteDB) HasVoted(ctx context.Context, alertID, userID string) (bool, error) {
	return hasVoted(ctx, s.db, alertID, userID)
}

func (s *SQLiteDB) ListVotes(ctx context.Context, alertID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT alert_id, user_id, vote_type, created_at FROM votes WHERE alert_id = ? ORDER BY rowid`,
		alertID)
	if err != nil {
		return nil, fmt.Errorf("error querying votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var (
			v         models.Vote
			createdAt int64
		)
		if err := rows.Scan(&v.AlertID, &v.UserID, &v.Kind, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning vote: %w", err)
		}
		v.CreatedAt = fromMillis(createdAt)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func hasVoted(ctx context.Context, q querier, alertID, userID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE alert_id = ? AND user_id = ?`,
		alertID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking vote: %w", err)
	}
	return count > 0, nil
}

// addVote relies on the (alert_id, user_id) primary key, so a second row for
// the same pair fails even if the caller skipped hasVoted.
func addVote(ctx context.Context, q querier, v *models.Vote) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO votes (alert_id, user_id, vote_type, created_at) VALUES (?, ?, ?, ?)`,
		v.AlertID, v.UserID, string(v.Kind), toMillis(v.CreatedAt),
	)
	if err != nil {
		if isConstraintErr(err) {
			return models.ErrDuplicateVote
		}
		return fmt.Errorf("error inserting vote: %w", err)
	}
	return nil
}
