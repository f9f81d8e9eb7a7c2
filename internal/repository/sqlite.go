package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/mr1hm/go-alert-board/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteDB struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection: writers are serialized and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	err = retry.Do(
		db.Ping,
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("database ping failed, retrying", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			latitude REAL,
			longitude REAL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS credentials (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			message TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			verified_votes INTEGER NOT NULL DEFAULT 0 CHECK (verified_votes >= 0),
			discard_votes INTEGER NOT NULL DEFAULT 0 CHECK (discard_votes >= 0),
			comments_count INTEGER NOT NULL DEFAULT 0 CHECK (comments_count >= 0),
			created_at INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS votes (
			alert_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			vote_type TEXT NOT NULL CHECK (vote_type IN ('verify', 'discard')),
			created_at INTEGER NOT NULL,
			PRIMARY KEY (alert_id, user_id),
			FOREIGN KEY (alert_id) REFERENCES alerts(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			comment_text TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (alert_id) REFERENCES alerts(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
		CREATE INDEX IF NOT EXISTS idx_comments_alert_id ON comments(alert_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.withTx(ctx, func(q querier) error {
		return fn(&sqliteTx{q: q})
	})
}

func (s *SQLiteDB) withTx(ctx context.Context, fn func(q querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	if err := fn(sqlTx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			slog.Error("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	q querier
}

func (t *sqliteTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, t.q, id)
}

func (t *sqliteTx) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return getAlert(ctx, t.q, id)
}

func (t *sqliteTx) HasVoted(ctx context.Context, alertID, userID string) (bool, error) {
	return hasVoted(ctx, t.q, alertID, userID)
}

func (t *sqliteTx) AddVote(ctx context.Context, v *models.Vote) error {
	return addVote(ctx, t.q, v)
}

func (t *sqliteTx) AddComment(ctx context.Context, c *models.Comment) error {
	return addComment(ctx, t.q, c)
}

func (t *sqliteTx) IncrementCounter(ctx context.Context, alertID string, c Counter) error {
	return incrementCounter(ctx, t.q, alertID, c)
}

func isConstraintErr(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullCoordinate(c *models.Coordinate) (sql.NullFloat64, sql.NullFloat64) {
	if c == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}

func scanCoordinate(lat, lng sql.NullFloat64) *models.Coordinate {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &models.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
}
