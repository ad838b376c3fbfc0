package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/service"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements service.ArtifactStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	retry  service.RetryOptions
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath.
// Call Migrate before use.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		retry: service.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put upserts a single artifact.
func (s *SQLiteStore) Put(ctx context.Context, scope service.Scope, name string, data []byte) error {
	if err := validateKey(ctx, scope, name); err != nil {
		return err
	}
	return common.WithRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO artifacts (user_id, family, name, data, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, family, name) DO UPDATE SET
				data = excluded.data,
				updated_at = excluded.updated_at`,
			scope.UserID, string(scope.Family), name, data, time.Now().UTC())
		return classify(err, "put artifact")
	}, s.retry)
}

// Get returns the named artifact.
func (s *SQLiteStore) Get(ctx context.Context, scope service.Scope, name string) ([]byte, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM artifacts WHERE user_id = ? AND family = ? AND name = ?`,
		scope.UserID, string(scope.Family), name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrNotFound, scope, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %w", common.ErrPersistence, scope, name, err)
	}
	return data, nil
}

// Exists reports whether the named artifact is stored.
func (s *SQLiteStore) Exists(ctx context.Context, scope service.Scope, name string) (bool, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return false, err
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artifacts WHERE user_id = ? AND family = ? AND name = ?`,
		scope.UserID, string(scope.Family), name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: exists %s/%s: %w", common.ErrPersistence, scope, name, err)
	}
	return count > 0, nil
}

// PutBundle replaces every artifact of scope inside one transaction, so
// readers see either the previous or the new bundle.
func (s *SQLiteStore) PutBundle(ctx context.Context, scope service.Scope, artifacts map[string][]byte) error {
	if err := validateBundle(ctx, scope, artifacts); err != nil {
		return err
	}
	return common.WithRetry(ctx, func() error {
		return s.putBundleTx(ctx, scope, artifacts)
	}, s.retry)
}

func (s *SQLiteStore) putBundleTx(ctx context.Context, scope service.Scope, artifacts map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM artifacts WHERE user_id = ? AND family = ?`,
		scope.UserID, string(scope.Family)); err != nil {
		return classify(err, "clear scope")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO artifacts (user_id, family, name, data, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return classify(err, "prepare insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for name, data := range artifacts {
		if _, err := stmt.ExecContext(ctx, scope.UserID, string(scope.Family), name, data, now); err != nil {
			return classify(err, "insert "+name)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit")
	}
	return nil
}

// ListScopes returns the user ids holding artifacts of family.
func (s *SQLiteStore) ListScopes(ctx context.Context, family service.Family) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM artifacts WHERE family = ? ORDER BY user_id`, string(family))
	if err != nil {
		return nil, fmt.Errorf("%w: list scopes: %w", common.ErrPersistence, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("%w: scan scope: %w", common.ErrPersistence, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// classify marks SQLite lock contention as retryable and everything else as a
// persistence failure.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %s: %w", common.ErrStoreBusy, op, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
}
