// Package apps holds the application catalog: the entry model, the contract
// of the OS directory that lists and starts applications, and the index that
// enumerates every profile into a sorted, deduplicated catalog.
package apps

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProfileID identifies a user profile (the primary user or a work sandbox).
type ProfileID string

// Icon is an opaque renderable handle, a file path or a theme icon name.
type Icon string

// Key identifies an entry. An empty Profile in a request means any profile.
type Key struct {
	Package string    `json:"package"`
	Profile ProfileID `json:"profile,omitempty"`
}

func (k Key) String() string {
	if k.Profile == "" {
		return k.Package
	}
	return k.Package + "@" + string(k.Profile)
}

// Matches reports whether an entry satisfies the key.
func (k Key) Matches(e Entry) bool {
	return e.Package == k.Package && (k.Profile == "" || k.Profile == e.Profile)
}

// Entry is one launchable application in one profile.
type Entry struct {
	Package   string    `json:"package"`
	Name      string    `json:"name"`
	Icon      Icon      `json:"icon"`
	Profile   ProfileID `json:"profile"`
	Secondary bool      `json:"secondary"`
}

func (e Entry) Key() Key {
	return Key{Package: e.Package, Profile: e.Profile}
}

// Catalog is an immutable snapshot of every launchable entry, sorted
// case-insensitively by display name.
type Catalog struct {
	Entries  []Entry   `json:"entries"`
	Primary  ProfileID `json:"primary"`
	Hash     string    `json:"hash"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewCatalog deduplicates entries by key (first wins), sorts them and
// computes the content hash used for cache invalidation.
func NewCatalog(primary ProfileID, entries []Entry) Catalog {
	seen := make(map[Key]bool, len(entries))
	unique := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		e.Secondary = e.Profile != primary
		unique = append(unique, e)
	}
	SortByName(unique)

	return Catalog{
		Entries:  unique,
		Primary:  primary,
		Hash:     hashEntries(unique),
		LoadedAt: time.Now(),
	}
}

// SortByName sorts entries case-insensitively by display name. Ties are
// broken by package and profile so the order is deterministic.
func SortByName(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		if entries[i].Package != entries[j].Package {
			return entries[i].Package < entries[j].Package
		}
		return entries[i].Profile < entries[j].Profile
	})
}

func (c Catalog) Len() int {
	return len(c.Entries)
}

// Find returns the first entry, in catalog order, matching the key.
func (c Catalog) Find(k Key) (Entry, bool) {
	for _, e := range c.Entries {
		if k.Matches(e) {
			return e, true
		}
	}
	return Entry{}, false
}

// FindPersisted resolves a persisted (package, is-secondary) reference to a
// live entry. Profile handles are not stable across restarts, so only the
// secondary flag is stored.
func (c Catalog) FindPersisted(pkg string, secondary bool) (Entry, bool) {
	if pkg == "" {
		return Entry{}, false
	}
	for _, e := range c.Entries {
		if e.Package == pkg && e.Secondary == secondary {
			return e, true
		}
	}
	return Entry{}, false
}

func hashEntries(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}

	h := md5.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\n", e.Package, e.Profile, e.Name, e.Icon)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
