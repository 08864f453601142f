// Package localstate persists the client's job list and current user in an
// embedded SQLite key/value table.
package localstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

const (
	keyJobs        = "jobs"
	keyCurrentUser = "current_user"
)

// State is the on-disk client state.
type State struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the state database at path. ":memory:" is accepted.
func Open(path string, logger *zap.Logger) (*State, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &State{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// SaveJobs replaces the persisted job list.
func (s *State) SaveJobs(ctx context.Context, jobs []domain.Job) error {
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return s.put(ctx, keyJobs, jobs)
}

// LoadJobs returns the persisted job list, empty when nothing was saved.
// A corrupt blob is logged and treated as empty.
func (s *State) LoadJobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	found, err := s.get(ctx, keyJobs, &jobs)
	if err != nil {
		if unreadable(err) {
			s.logger.Warn("Discarding unreadable job list", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return jobs, nil
}

// SaveUser stores the current user record.
func (s *State) SaveUser(ctx context.Context, u domain.User) error {
	return s.put(ctx, keyCurrentUser, u)
}

// LoadUser returns the current user, or the guest user if none is stored.
func (s *State) LoadUser(ctx context.Context) (domain.User, error) {
	var u domain.User
	found, err := s.get(ctx, keyCurrentUser, &u)
	if err != nil {
		if !unreadable(err) {
			return domain.User{}, err
		}
		s.logger.Warn("Discarding unreadable user record", zap.Error(err))
		found = false
	}
	if !found || u.ID == "" {
		return domain.GuestUser(), nil
	}
	return u, nil
}

func (s *State) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, string(b))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *State) get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// unreadable reports whether err comes from a stored blob that is not valid
// JSON, has the wrong shape, or carries values outside the domain.
func unreadable(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, domain.ErrValidation)
}
