package settings

import "sync"

// Memory is a non-durable Store, used by tests and the "memory" backend.
type Memory struct {
	mu     sync.RWMutex
	values map[string]any
	closed bool
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]any)}
}

func (m *Memory) get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) put(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

func (m *Memory) GetString(key, def string) string {
	if v, ok := m.get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (m *Memory) GetBool(key string, def bool) bool {
	if v, ok := m.get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (m *Memory) GetInt(key string, def int) int {
	if v, ok := m.get(key); ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return def
}

func (m *Memory) GetStringSet(key string, def []string) []string {
	if v, ok := m.get(key); ok {
		if set, ok := v.([]string); ok {
			return append([]string(nil), set...)
		}
	}
	return def
}

func (m *Memory) PutString(key, value string) error {
	return m.put(key, value)
}

func (m *Memory) PutBool(key string, value bool) error {
	return m.put(key, value)
}

func (m *Memory) PutInt(key string, value int) error {
	return m.put(key, value)
}

func (m *Memory) PutStringSet(key string, values []string) error {
	return m.put(key, dedupe(values))
}

// Set stores a raw value of any type. Tests use it to plant corrupt values.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
