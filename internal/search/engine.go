// Package search ranks the catalog against a free-text query.
//
// A non-blank query is normalized (trimmed, lowercased) and matched against
// lowercased display names in two tiers: names starting with the query, then
// names containing it elsewhere. Each tier is sorted by name and the tiers
// are concatenated. A blank query returns the catalog unchanged.
package search

import (
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
)

// Result is the ranked outcome of one query.
type Result struct {
	Query    string
	Blank    bool
	Prefix   []apps.Entry
	Contains []apps.Entry

	all []apps.Entry
}

// Entries returns the ordered result: the whole catalog for a blank query,
// otherwise the prefix tier followed by the contains tier.
func (r Result) Entries() []apps.Entry {
	if r.Blank {
		return r.all
	}
	out := make([]apps.Entry, 0, len(r.Prefix)+len(r.Contains))
	out = append(out, r.Prefix...)
	return append(out, r.Contains...)
}

func (r Result) Len() int {
	if r.Blank {
		return len(r.all)
	}
	return len(r.Prefix) + len(r.Contains)
}

// AutoLaunch is the post-condition of a search: the single remaining entry
// when auto-launch is enabled, nil otherwise. Blank queries never produce a
// candidate.
func (r Result) AutoLaunch(enabled bool) *apps.Entry {
	if !enabled || r.Blank || r.Len() != 1 {
		return nil
	}
	e := r.Entries()[0]
	return &e
}

// Normalize lowercases and trims a query or display name.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type Engine struct {
	cache *Cache
	log   *zap.Logger
}

// NewEngine creates an engine with an LRU result cache of cacheSize entries.
func NewEngine(cacheSize int, log *zap.Logger) (*Engine, error) {
	log = log.Named("search")
	cache, err := NewCache(cacheSize, log)
	if err != nil {
		return nil, err
	}
	return &Engine{cache: cache, log: log}, nil
}

// Search ranks catalog against query. It is deterministic: the same query
// and catalog always give the same ordered result.
func (e *Engine) Search(query string, catalog apps.Catalog) Result {
	q := Normalize(query)
	if q == "" {
		return Result{Query: query, Blank: true, all: catalog.Entries}
	}

	if cached, ok := e.cache.Get(q, catalog.Hash); ok {
		cached.Query = query
		return cached
	}

	start := time.Now()
	var prefix, contains []apps.Entry
	for _, entry := range catalog.Entries {
		name := strings.ToLower(entry.Name)
		switch {
		case strings.HasPrefix(name, q):
			prefix = append(prefix, entry)
		case strings.Contains(name, q):
			contains = append(contains, entry)
		}
	}
	apps.SortByName(prefix)
	apps.SortByName(contains)

	result := Result{Query: query, Prefix: prefix, Contains: contains}
	took := time.Since(start)
	e.cache.Put(q, catalog.Hash, result, took)

	e.log.Debug("search",
		zap.String("query", q),
		zap.Int("prefix", len(prefix)),
		zap.Int("contains", len(contains)),
		zap.Duration("took", took))
	return result
}

// Suggest returns up to limit fuzzy matches by display name. It is meant for
// a "did you mean" hint when Search comes back empty and never changes the
// ranked result.
func (e *Engine) Suggest(query string, catalog apps.Catalog, limit int) []apps.Entry {
	q := Normalize(query)
	if q == "" || limit <= 0 || catalog.Len() == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(q, catalogSource(catalog.Entries))
	out := make([]apps.Entry, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) >= limit {
			break
		}
		out = append(out, catalog.Entries[m.Index])
	}
	return out
}

// Invalidate drops every cached result.
func (e *Engine) Invalidate() {
	e.cache.Invalidate()
}

func (e *Engine) CacheStats() *CacheStats {
	return e.cache.GetStats()
}

type catalogSource []apps.Entry

func (s catalogSource) String(i int) string {
	return strings.ToLower(s[i].Name)
}

func (s catalogSource) Len() int {
	return len(s)
}
