package desktop

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var errIconNotFound = errors.New("icon not found")

// IconResolver maps icon names to files under a set of search directories,
// caching both hits and misses.
type IconResolver struct {
	cache      *lru.Cache[string, string]
	extensions []string
	log        *zap.Logger

	mu     sync.Mutex
	hits   int64
	misses int64
}

func NewIconResolver(size int, extensions []string, log *zap.Logger) (*IconResolver, error) {
	if size <= 0 {
		size = 200
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon cache: %w", err)
	}
	return &IconResolver{
		cache:      cache,
		extensions: extensions,
		log:        log.Named("icons"),
	}, nil
}

// Resolve returns the file for an icon name. An absolute path is returned
// as is when it exists. An empty cached value records a previous miss.
func (r *IconResolver) Resolve(name string, dirs []string) (string, error) {
	if name == "" {
		return "", errIconNotFound
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%s: %w", name, errIconNotFound)
		}
		return name, nil
	}

	key := name + "\x00" + strings.Join(dirs, ":")
	if path, ok := r.cache.Get(key); ok {
		r.count(true)
		if path == "" {
			return "", fmt.Errorf("%s: %w", name, errIconNotFound)
		}
		return path, nil
	}
	r.count(false)

	path := r.search(name, dirs)
	r.cache.Add(key, path)
	if path == "" {
		r.log.Debug("icon not found", zap.String("name", name), zap.Strings("dirs", dirs))
		return "", fmt.Errorf("%s: %w", name, errIconNotFound)
	}
	return path, nil
}

func (r *IconResolver) search(name string, dirs []string) string {
	wanted := make(map[string]bool, len(r.extensions))
	for _, ext := range r.extensions {
		wanted[name+ext] = true
	}

	for _, dir := range dirs {
		for _, ext := range r.extensions {
			candidate := filepath.Join(dir, name+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}

		// themed layouts nest icons by size and context
		found := ""
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && wanted[d.Name()] {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func (r *IconResolver) count(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

// Stats returns cache hits, misses and current size.
func (r *IconResolver) Stats() (hits, misses int64, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits, r.misses, r.cache.Len()
}

func (r *IconResolver) Clear() {
	r.cache.Purge()
}
