package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestContainer_UpdateBumpsVersion(t *testing.T) {
	c := NewContainer(State{DelayDurationSeconds: 60})

	s := c.Update(func(s *State) { s.SearchText = "cal" })
	assert.Equal(t, uint64(1), s.Version)
	assert.Equal(t, "cal", c.Snapshot().SearchText)
	assert.Equal(t, 60, c.Snapshot().DelayDurationSeconds)
}

func TestContainer_SnapshotIsACopy(t *testing.T) {
	c := NewContainer(State{})
	snap := c.Snapshot()
	snap.SearchText = "mutated"
	assert.Empty(t, c.Snapshot().SearchText)
}

func TestContainer_SubscribeDeliversLatest(t *testing.T) {
	c := NewContainer(State{})
	ch, cancel := c.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Equal(t, uint64(0), initial.Version)

	for i := 0; i < 10; i++ {
		c.Update(func(s *State) { s.DelayTimerSeconds = i })
	}

	latest := <-ch
	assert.Equal(t, uint64(10), latest.Version)
	assert.Equal(t, 9, latest.DelayTimerSeconds)

	select {
	case s := <-ch:
		t.Fatalf("unexpected extra delivery: version %d", s.Version)
	default:
	}
}

func TestContainer_UnsubscribeClosesChannel(t *testing.T) {
	c := NewContainer(State{})
	ch, cancel := c.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// updates after unsubscribe must not panic
	c.Update(func(s *State) { s.ShowSettings = true })
}

func TestContainer_ConcurrentUpdates(t *testing.T) {
	c := NewContainer(State{})
	ch, cancel := c.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(s *State) { s.DelayTimerSeconds++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Snapshot().DelayTimerSeconds)
	assert.Equal(t, uint64(50), c.Snapshot().Version)
	require.Equal(t, uint64(50), (<-ch).Version)
}

func TestState_DelayedEntry(t *testing.T) {
	calc := apps.Entry{Package: "com.x.calc", Name: "Calculator", Profile: "personal"}
	s := State{DelayedApps: []apps.Entry{calc}}

	e, ok := s.DelayedEntry(apps.Key{Package: "com.x.calc", Profile: "personal"})
	require.True(t, ok)
	assert.Equal(t, calc, e)

	e, ok = s.DelayedEntry(apps.Key{Package: "com.x.calc"})
	require.True(t, ok)
	assert.Equal(t, "Calculator", e.Name)

	_, ok = s.DelayedEntry(apps.Key{Package: "com.x.calc", Profile: "work"})
	assert.False(t, ok)
	_, ok = s.DelayedEntry(apps.Key{Package: "com.x.cal"})
	assert.False(t, ok)
}

func TestState_Binding(t *testing.T) {
	var s State
	_, ok := s.Binding(bindings.LeftSwipe)
	assert.False(t, ok)

	s.Bindings[bindings.LeftSwipe] = &apps.Entry{Package: "com.y.app", Profile: "work"}
	e, ok := s.Binding(bindings.LeftSwipe)
	require.True(t, ok)
	assert.Equal(t, apps.ProfileID("work"), e.Profile)

	_, ok = s.Binding(bindings.Gesture(42))
	assert.False(t, ok)
}
