package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr1hm/go-alert-board/internal/models"
)

const userColumns = `id, full_name, phone, email, latitude, longitude, created_at`

// CreateAccount inserts the user row and its credentials together. A taken
// email yields ErrConflict.
func (s *SQLiteDB) CreateAccount(ctx context.Context, u *models.User, passwordHash string) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(q querier) error {
		lat, lng := nullCoordinate(u.Location)
		_, err := q.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.FullName, u.Phone, u.Email, lat, lng, toMillis(u.CreatedAt),
		)
		if err != nil {
			if isConstraintErr(err) {
				return ErrConflict
			}
			return fmt.Errorf("error inserting user: %w", err)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO credentials (user_id, email, password_hash) VALUES (?, ?, ?)`,
			u.ID, strings.ToLower(u.Email), passwordHash,
		)
		if err != nil {
			if isConstraintErr(err) {
				return ErrConflict
			}
			return fmt.Errorf("error inserting credentials: %w", err)
		}
		return nil
	})
}

// GetCredential returns empty strings when no account uses email.
func (s *SQLiteDB) GetCredential(ctx context.Context, email string) (string, string, error) {
	var userID, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash FROM credentials WHERE email = ?`,
		strings.ToLower(email),
	).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("error querying credentials: %w", err)
	}
	return userID, hash, nil
}

func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, s.db, id)
}

func (s *SQLiteDB) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	return scanUsers(rows)
}

func (s *SQLiteDB) UpdateUserLocation(ctx context.Context, id string, c models.Coordinate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET latitude = ?, longitude = ? WHERE id = ?`, c.Lat, c.Lng, id)
	if err != nil {
		return fmt.Errorf("error updating user location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrUnknownUser
	}
	return nil
}

func (s *SQLiteDB) ListUsersWithLocation(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE latitude IS NOT NULL AND longitude IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	return scanUsers(rows)
}

func getUser(ctx context.Context, q querier, id string) (*models.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*models.User, error) {
	var (
		u         models.User
		lat, lng  sql.NullFloat64
		createdAt int64
	)
	if err := r.Scan(&u.ID, &u.FullName, &u.Phone, &u.Email, &lat, &lng, &createdAt); err != nil {
		return nil, err
	}
	u.Location = scanCoordinate(lat, lng)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
