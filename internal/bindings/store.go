// Package bindings persists the user's gesture bindings, the delay set and
// the two launcher preferences (auto-launch, delay duration).
//
// Profile handles are not stable across restarts, so a reference is stored
// as (package, is-secondary-profile) and resolved against the live catalog
// on load. References that no longer match anything resolve to "unbound".
package bindings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/settings"
)

const (
	KeyAutoLaunchEnabled    = "auto_launch_enabled"
	KeyDelayDurationSeconds = "delay_duration_seconds"
	KeyDelayedApps          = "delayed_apps_packages"
)

// Ref is the persisted form of an entry reference.
type Ref struct {
	Package   string
	Secondary bool
}

func RefOf(e apps.Entry) Ref {
	return Ref{Package: e.Package, Secondary: e.Secondary}
}

// String encodes the ref as "package|isWork".
func (r Ref) String() string {
	return r.Package + "|" + strconv.FormatBool(r.Secondary)
}

func ParseRef(s string) (Ref, error) {
	i := strings.LastIndex(s, "|")
	if i <= 0 {
		return Ref{}, fmt.Errorf("malformed reference %q", s)
	}
	secondary, err := strconv.ParseBool(s[i+1:])
	if err != nil {
		return Ref{}, fmt.Errorf("malformed reference %q: %w", s, err)
	}
	return Ref{Package: s[:i], Secondary: secondary}, nil
}

// Preferences holds the defaults and bounds applied when reading the two
// launcher preferences.
type Preferences struct {
	AutoLaunchDefault   bool
	DelayDefaultSeconds int
	DelayMinSeconds     int
	DelayMaxSeconds     int
}

func DefaultPreferences() Preferences {
	return Preferences{
		AutoLaunchDefault:   true,
		DelayDefaultSeconds: 60,
		DelayMinSeconds:     5,
		DelayMaxSeconds:     120,
	}
}

// Resolved is the result of resolving every persisted reference against a
// catalog.
type Resolved struct {
	Bindings [GestureCount]*apps.Entry
	Delayed  []apps.Entry
}

type Store struct {
	settings settings.Store
	prefs    Preferences
	log      *zap.Logger

	mu      sync.Mutex
	delayed map[Ref]bool
}

// NewStore loads the persisted delay set. Malformed members are dropped.
func NewStore(s settings.Store, prefs Preferences, log *zap.Logger) *Store {
	st := &Store{
		settings: s,
		prefs:    prefs,
		log:      log.Named("bindings"),
		delayed:  make(map[Ref]bool),
	}
	for _, raw := range s.GetStringSet(KeyDelayedApps, nil) {
		ref, err := ParseRef(raw)
		if err != nil {
			st.log.Warn("dropping malformed delayed app", zap.String("value", raw), zap.Error(err))
			continue
		}
		st.delayed[ref] = true
	}
	return st
}

// SetBinding binds the gesture to entry, or clears it when entry is nil.
func (s *Store) SetBinding(g Gesture, entry *apps.Entry) error {
	if !g.Valid() {
		return fmt.Errorf("invalid gesture %v", g)
	}

	if entry == nil {
		if err := s.settings.Remove(g.PackageKey()); err != nil {
			return err
		}
		return s.settings.PutBool(g.WorkKey(), false)
	}

	if err := s.settings.PutString(g.PackageKey(), entry.Package); err != nil {
		return err
	}
	if err := s.settings.PutBool(g.WorkKey(), entry.Secondary); err != nil {
		return err
	}
	s.log.Debug("binding set", zap.Stringer("gesture", g), zap.Stringer("entry", entry.Key()))
	return nil
}

// BindingRef returns the persisted reference for a gesture.
func (s *Store) BindingRef(g Gesture) (Ref, bool) {
	pkg := s.settings.GetString(g.PackageKey(), "")
	if pkg == "" {
		return Ref{}, false
	}
	return Ref{Package: pkg, Secondary: s.settings.GetBool(g.WorkKey(), false)}, true
}

// Binding resolves a gesture against the catalog.
func (s *Store) Binding(g Gesture, catalog apps.Catalog) (apps.Entry, bool) {
	ref, ok := s.BindingRef(g)
	if !ok {
		return apps.Entry{}, false
	}
	return catalog.FindPersisted(ref.Package, ref.Secondary)
}

// Load resolves all five bindings and the delay set against the catalog.
func (s *Store) Load(catalog apps.Catalog) Resolved {
	var r Resolved
	for _, g := range Gestures() {
		if e, ok := s.Binding(g, catalog); ok {
			r.Bindings[g] = &e
		}
	}
	r.Delayed = s.resolveDelayed(catalog)
	return r
}

func (s *Store) resolveDelayed(catalog apps.Catalog) []apps.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []apps.Entry{}
	for _, e := range catalog.Entries {
		if s.delayed[RefOf(e)] {
			out = append(out, e)
		}
	}
	return out
}

// AddDelayed adds entry to the delay set. Adding a present entry is a no-op.
// It reports whether the set changed.
func (s *Store) AddDelayed(entry apps.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := RefOf(entry)
	if s.delayed[ref] {
		return false, nil
	}
	s.delayed[ref] = true
	return true, s.saveDelayed()
}

// RemoveDelayed removes entry from the delay set. Removing an absent entry
// is a no-op. It reports whether the set changed.
func (s *Store) RemoveDelayed(entry apps.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := RefOf(entry)
	if !s.delayed[ref] {
		return false, nil
	}
	delete(s.delayed, ref)
	return true, s.saveDelayed()
}

// DelayedRefs returns the persisted delay set, including references that do
// not resolve against the current catalog.
func (s *Store) DelayedRefs() []Ref {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make([]Ref, 0, len(s.delayed))
	for ref := range s.delayed {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].String() < refs[j].String()
	})
	return refs
}

// saveDelayed must be called with mu held.
func (s *Store) saveDelayed() error {
	set := make([]string, 0, len(s.delayed))
	for ref := range s.delayed {
		set = append(set, ref.String())
	}
	sort.Strings(set)
	return s.settings.PutStringSet(KeyDelayedApps, set)
}

func (s *Store) AutoLaunchEnabled() bool {
	return s.settings.GetBool(KeyAutoLaunchEnabled, s.prefs.AutoLaunchDefault)
}

func (s *Store) SetAutoLaunchEnabled(enabled bool) error {
	return s.settings.PutBool(KeyAutoLaunchEnabled, enabled)
}

// DelayDuration returns the countdown length in seconds, clamped to the
// configured bounds.
func (s *Store) DelayDuration() int {
	return s.ClampDelay(s.settings.GetInt(KeyDelayDurationSeconds, s.prefs.DelayDefaultSeconds))
}

// SetDelayDuration clamps and persists the countdown length, returning the
// value actually stored.
func (s *Store) SetDelayDuration(seconds int) (int, error) {
	seconds = s.ClampDelay(seconds)
	return seconds, s.settings.PutInt(KeyDelayDurationSeconds, seconds)
}

func (s *Store) ClampDelay(seconds int) int {
	return max(s.prefs.DelayMinSeconds, min(seconds, s.prefs.DelayMaxSeconds))
}
