// Package settings is the durable key-value store behind the launcher's
// bindings and preferences. Reads never fail: a missing, wrong-typed or
// corrupt value reads back as the caller's default.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/config"
)

var ErrClosed = errors.New("settings store closed")

type Store interface {
	GetString(key, def string) string
	GetBool(key string, def bool) bool
	GetInt(key string, def int) int
	GetStringSet(key string, def []string) []string

	PutString(key, value string) error
	PutBool(key string, value bool) error
	PutInt(key string, value int) error
	PutStringSet(key string, values []string) error
	Remove(key string) error

	Close() error
}

// Open returns the backend selected in the store config.
func Open(cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	log = log.Named("settings")

	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "yaml", "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
		if cfg.Backend == "yaml" {
			return OpenYAML(cfg.Path, log)
		}
		return OpenSQLite(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unknown settings backend: %s", cfg.Backend)
	}
}

// dedupe returns values without duplicates, keeping first occurrence order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
