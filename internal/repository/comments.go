package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr1hm/go-alert-board/internal/models"
)

// ListComments returns the thread in insertion order.
func (s *SQLiteDB) ListComments(ctx context.Context, alertID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, alert_id, user_id, comment_text, created_at FROM comments
		WHERE alert_id = ? ORDER BY rowid`,
		alertID)
	if err != nil {
		return nil, fmt.Errorf("error querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var (
			c         models.Comment
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.AlertID, &c.UserID, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning comment: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func addComment(ctx context.Context, q querier, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO comments (id, alert_id, user_id, comment_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.AlertID, c.UserID, c.Text, toMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("error inserting comment: %w", err)
	}
	return nil
}
