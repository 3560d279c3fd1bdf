package settings

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// YAML keeps every setting in memory and rewrites the whole file on each
// change using a temp file and rename.
type YAML struct {
	path   string
	log    *zap.Logger
	mu     sync.RWMutex
	values map[string]any
	closed bool
}

func OpenYAML(path string, log *zap.Logger) (*YAML, error) {
	y := &YAML{path: path, log: log, values: make(map[string]any)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no settings file yet, starting fresh", zap.String("path", path))
			return y, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &y.values); err != nil {
		// A corrupt file resets every field to its default instead of
		// blocking startup.
		log.Warn("corrupt settings file, starting fresh", zap.String("path", path), zap.Error(err))
		y.values = make(map[string]any)
	}
	if y.values == nil {
		y.values = make(map[string]any)
	}
	return y, nil
}

func (y *YAML) get(key string) (any, bool) {
	y.mu.RLock()
	defer y.mu.RUnlock()
	v, ok := y.values[key]
	return v, ok
}

func (y *YAML) GetString(key, def string) string {
	if v, ok := y.get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (y *YAML) GetBool(key string, def bool) bool {
	if v, ok := y.get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (y *YAML) GetInt(key string, def int) int {
	if v, ok := y.get(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

func (y *YAML) GetStringSet(key string, def []string) []string {
	v, ok := y.get(key)
	if !ok {
		return def
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				y.log.Warn("corrupt set setting, using default", zap.String("key", key))
				return def
			}
			out = append(out, s)
		}
		return out
	}
	return def
}

func (y *YAML) put(key string, value any) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return ErrClosed
	}
	y.values[key] = value
	return y.save()
}

func (y *YAML) PutString(key, value string) error {
	return y.put(key, value)
}

func (y *YAML) PutBool(key string, value bool) error {
	return y.put(key, value)
}

func (y *YAML) PutInt(key string, value int) error {
	return y.put(key, value)
}

func (y *YAML) PutStringSet(key string, values []string) error {
	return y.put(key, dedupe(values))
}

func (y *YAML) Remove(key string) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.closed {
		return ErrClosed
	}
	delete(y.values, key)
	return y.save()
}

func (y *YAML) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.closed = true
	return nil
}

// save must be called with mu held.
func (y *YAML) save() error {
	data, err := yaml.Marshal(y.values)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tempFile := y.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp settings file: %w", err)
	}
	if err := os.Rename(tempFile, y.path); err != nil {
		return fmt.Errorf("failed to rename temp settings file: %w", err)
	}
	return nil
}
