package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrChatNotFound = errors.New("chat not found")

type Store struct {
	DB *sqlx.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_time_format=sqlite", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// WAL lets the scheduler read while a command writes.
	_, _ = db.Exec("PRAGMA journal_mode=WAL;")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL;")
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	st := &Store{DB: db}
	if err := st.migrate(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) migrate() error {
	ddl, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(string(ddl))
	return err
}

func (s *Store) EnsureSettings(defaultTime string) error {
	_, err := s.DB.Exec("INSERT INTO settings (id, daily_time) VALUES (1, ?) ON CONFLICT(id) DO NOTHING", defaultTime)
	return err
}

func (s *Store) GetDailyTime() (string, error) {
	var t string
	err := s.DB.Get(&t, "SELECT daily_time FROM settings WHERE id=1")
	return t, err
}

func (s *Store) SetDailyTime(t string) error {
	_, err := s.DB.Exec("UPDATE settings SET daily_time=? WHERE id=1", t)
	return err
}

// isLockedError reports SQLITE_BUSY / SQLITE_LOCKED, including extended codes.
func isLockedError(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy")
}

// retry runs fn up to five times while SQLite reports the database as busy.
func retry(what string, fn func() error) error {
	const maxAttempts = 5
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isLockedError(err) {
			return fmt.Errorf("%s: %w", what, err)
		}
		lastErr = err
		time.Sleep(time.Duration(attempt*100) * time.Millisecond)
	}
	return fmt.Errorf("%s exhausted retries: %w", what, lastErr)
}

func (s *Store) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// dbTime keeps stored timestamps comparable as text.
func dbTime(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }
