package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr1hm/go-alert-board/internal/models"
)

const alertColumns = `id, user_id, name, message, latitude, longitude,
	verified_votes, discard_votes, comments_count, created_at`

// AddAlert assigns an ID and creation time when absent. Counters always start at zero.
func (s *SQLiteDB) AddAlert(ctx context.Context, a *models.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.VerifiedVotes, a.DiscardVotes, a.CommentsCount = 0, 0, 0

	lat, lng := nullCoordinate(a.Location)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, ?)`,
		a.ID, a.UserID, a.AuthorName, a.Message, lat, lng, toMillis(a.CreatedAt),
	)
	if err != nil {
		if isConstraintErr(err) {
			return ErrConflict
		}
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return getAlert(ctx, s.db, id)
}

// ListAlerts returns every alert newest first, insertion order breaking
// ties. There is no server-side filtering or pagination.
func (s *SQLiteDB) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func getAlert(ctx context.Context, q querier, id string) (*models.Alert, error) {
	row := q.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying alert: %w", err)
	}
	return a, nil
}

// incrementCounter bumps one counter in place; the new value is computed by
// the database, never by the caller.
func incrementCounter(ctx context.Context, q querier, alertID string, c Counter) error {
	switch c {
	case CounterVerified, CounterDiscard, CounterComments:
	default:
		return fmt.Errorf("unknown counter %q", c)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE alerts SET `+string(c)+` = `+string(c)+` + 1 WHERE id = ?`, alertID)
	if err != nil {
		return fmt.Errorf("error incrementing %s: %w", c, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanAlert(r rowScanner) (*models.Alert, error) {
	var (
		a         models.Alert
		lat, lng  sql.NullFloat64
		createdAt int64
	)
	err := r.Scan(&a.ID, &a.UserID, &a.AuthorName, &a.Message, &lat, &lng,
		&a.VerifiedVotes, &a.DiscardVotes, &a.CommentsCount, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Location = scanCoordinate(lat, lng)
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}
