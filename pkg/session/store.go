package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sigtrail/sigtrail/internal/utils"
	_ "modernc.org/sqlite"
)

// Store is an AuthContext persisted in a sqlite file so the session survives
// between CLI invocations.
type Store struct {
	sql  *sql.DB
	lock *utils.FileLock
}

// Info is the stored session row.
type Info struct {
	Address   string
	Token     string
	UpdatedAt time.Time
}

func Open(path string) (*Store, error) {
	absPath, err := utils.GetAbsDBPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o700); err != nil {
		return nil, fmt.Errorf("session: create dir: %w", err)
	}
	lock, err := utils.NewFileLock(absPath)
	if err != nil {
		return nil, err
	}

	dsn := "file:" + absPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS session (
  id         INTEGER PRIMARY KEY CHECK (id = 1),
  address    TEXT NOT NULL DEFAULT '',
  token      TEXT NOT NULL DEFAULT '',
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
INSERT OR IGNORE INTO session(id) VALUES (1);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{sql: db, lock: lock}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// Load returns the stored session, or ErrNoSession when nothing is stored.
func (s *Store) Load(ctx context.Context) (Info, error) {
	var (
		info    Info
		updated string
	)
	row := s.sql.QueryRowContext(ctx, "SELECT address, token, updated_at FROM session WHERE id = 1")
	if err := row.Scan(&info.Address, &info.Token, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Info{}, ErrNoSession
		}
		return Info{}, err
	}
	// Parse SQLite CURRENT_TIMESTAMP format
	if t, perr := time.Parse("2006-01-02 15:04:05", updated); perr == nil {
		info.UpdatedAt = t
	} else if t2, perr2 := time.Parse(time.RFC3339, updated); perr2 == nil {
		info.UpdatedAt = t2
	}
	if info.Address == "" && info.Token == "" {
		return info, ErrNoSession
	}
	return info, nil
}

// Save replaces the stored address and token.
func (s *Store) Save(ctx context.Context, address, token string) error {
	return s.exec(ctx, "UPDATE session SET address = ?, token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1", address, token)
}

// Token returns the stored token, or "" if none or on read failure.
func (s *Store) Token() string {
	info, err := s.Load(context.Background())
	if err != nil && !errors.Is(err, ErrNoSession) {
		utils.Log.Warnf("Could not read session token: %v", err)
	}
	return info.Token
}

func (s *Store) Address() string {
	info, err := s.Load(context.Background())
	if err != nil && !errors.Is(err, ErrNoSession) {
		utils.Log.Warnf("Could not read session address: %v", err)
	}
	return info.Address
}

func (s *Store) RemoveToken() error {
	return s.exec(context.Background(), "UPDATE session SET token = '', updated_at = CURRENT_TIMESTAMP WHERE id = 1")
}

func (s *Store) RemoveAddress() error {
	return s.exec(context.Background(), "UPDATE session SET address = '', updated_at = CURRENT_TIMESTAMP WHERE id = 1")
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	return s.lock.WithLock(ctx, func() error {
		if _, err := s.sql.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("session: write: %w", err)
		}
		return nil
	})
}
