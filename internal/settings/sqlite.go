package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	kindString = "string"
	kindBool   = "bool"
	kindInt    = "int"
	kindSet    = "set"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	kind  TEXT NOT NULL,
	value TEXT NOT NULL
);`

// SQLite is the default Store backend: one row per key in a single table.
type SQLite struct {
	db     *sql.DB
	log    *zap.Logger
	mu     sync.RWMutex
	closed bool
}

func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings schema: %w", err)
	}

	log.Debug("settings database opened", zap.String("path", path))
	return &SQLite{db: db, log: log}, nil
}

// read returns the raw value if the row exists with the expected kind.
func (s *SQLite) read(key, kind string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false
	}

	var gotKind, value string
	err := s.db.QueryRow(`SELECT kind, value FROM settings WHERE key = ?`, key).Scan(&gotKind, &value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("settings read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if gotKind != kind {
		s.log.Warn("settings value has wrong kind, using default",
			zap.String("key", key), zap.String("want", kind), zap.String("got", gotKind))
		return "", false
	}
	return value, true
}

func (s *SQLite) write(key, kind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.Exec(`INSERT INTO settings (key, kind, value) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, value = excluded.value`, key, kind, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) GetString(key, def string) string {
	if v, ok := s.read(key, kindString); ok {
		return v
	}
	return def
}

func (s *SQLite) GetBool(key string, def bool) bool {
	v, ok := s.read(key, kindBool)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.log.Warn("corrupt bool setting, using default", zap.String("key", key), zap.String("value", v))
		return def
	}
	return b
}

func (s *SQLite) GetInt(key string, def int) int {
	v, ok := s.read(key, kindInt)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		s.log.Warn("corrupt int setting, using default", zap.String("key", key), zap.String("value", v))
		return def
	}
	return i
}

func (s *SQLite) GetStringSet(key string, def []string) []string {
	v, ok := s.read(key, kindSet)
	if !ok {
		return def
	}
	var set []string
	if err := json.Unmarshal([]byte(v), &set); err != nil {
		s.log.Warn("corrupt set setting, using default", zap.String("key", key), zap.Error(err))
		return def
	}
	return set
}

func (s *SQLite) PutString(key, value string) error {
	return s.write(key, kindString, value)
}

func (s *SQLite) PutBool(key string, value bool) error {
	return s.write(key, kindBool, strconv.FormatBool(value))
}

func (s *SQLite) PutInt(key string, value int) error {
	return s.write(key, kindInt, strconv.Itoa(value))
}

func (s *SQLite) PutStringSet(key string, values []string) error {
	data, err := json.Marshal(dedupe(values))
	if err != nil {
		return fmt.Errorf("failed to encode set %s: %w", key, err)
	}
	return s.write(key, kindSet, string(data))
}

func (s *SQLite) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
