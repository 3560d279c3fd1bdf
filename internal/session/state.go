// Package session holds the aggregate observable state of a launcher
// session. Logic components write through Container.Update; the
// presentation layer only reads snapshots.
package session

import (
	"sync"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
)

// State is one immutable snapshot. Slices and pointers inside a published
// State must not be mutated by readers.
type State struct {
	SearchText        string       `json:"search_text"`
	AllApps           []apps.Entry `json:"all_apps"`
	FilteredApps      []apps.Entry `json:"filtered_apps"`
	Suggestions       []apps.Entry `json:"suggestions,omitempty"`
	AutoLaunchApp     *apps.Entry  `json:"auto_launch_app"`
	AutoLaunchEnabled bool         `json:"auto_launch_enabled"`

	DelayDurationSeconds int `json:"delay_duration_seconds"`

	Bindings    [bindings.GestureCount]*apps.Entry `json:"bindings"`
	DelayedApps []apps.Entry                       `json:"delayed_apps"`

	IsDelayingLaunch  bool        `json:"is_delaying_launch"`
	DelayTimerSeconds int         `json:"delay_timer_seconds"`
	PendingLaunchApp  *apps.Entry `json:"pending_launch_app"`

	ShowSettings  bool                `json:"show_settings"`
	ShowAppPicker bool                `json:"show_app_picker"`
	PickingTarget bindings.PickTarget `json:"picking_target"`

	Reloading bool   `json:"reloading"`
	Version   uint64 `json:"version"`
}

// Catalog rebuilds a catalog view of AllApps.
func (s State) Catalog(primary apps.ProfileID) apps.Catalog {
	return apps.Catalog{Entries: s.AllApps, Primary: primary}
}

// Binding returns the resolved entry bound to a gesture.
func (s State) Binding(g bindings.Gesture) (apps.Entry, bool) {
	if !g.Valid() || s.Bindings[g] == nil {
		return apps.Entry{}, false
	}
	return *s.Bindings[g], true
}

// DelayedEntry returns the delay-set member a request key falls on. An empty
// profile in the key matches any profile.
func (s State) DelayedEntry(k apps.Key) (apps.Entry, bool) {
	for _, e := range s.DelayedApps {
		if k.Matches(e) {
			return e, true
		}
	}
	return apps.Entry{}, false
}

// ClearCountdown resets the countdown fields.
func (s *State) ClearCountdown() {
	s.IsDelayingLaunch = false
	s.DelayTimerSeconds = 0
	s.PendingLaunchApp = nil
}

// Reader is the read-only view handed to the presentation layer.
type Reader interface {
	Snapshot() State
	Subscribe() (<-chan State, func())
}

// Container owns the current State. Update is the only write path.
type Container struct {
	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
}

func NewContainer(initial State) *Container {
	return &Container{
		state: initial,
		subs:  make(map[int]chan State),
	}
}

func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Update applies fn to a copy of the current state, bumps the version and
// publishes the result to every subscriber.
func (c *Container) Update(fn func(*State)) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	fn(&next)
	next.Version = c.state.Version + 1
	c.state = next

	for _, ch := range c.subs {
		offer(ch, next)
	}
	return next
}

// Subscribe returns a channel that always yields the latest state. A slow
// reader skips intermediate versions. The returned func unsubscribes.
func (c *Container) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan State, 1)
	ch <- c.state
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// offer replaces any undelivered value with s.
func offer(ch chan State, s State) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}
