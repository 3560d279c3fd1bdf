// Package gate decides, for every launch request, whether the target is
// started now or held behind a cancelable countdown, and performs the
// dispatch through the app directory.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
	"github.com/chess10kp/vibe/internal/logging"
	"github.com/chess10kp/vibe/internal/session"
)

type Status int

const (
	// Ignored means there was nothing to launch, e.g. an unbound gesture.
	Ignored Status = iota
	Dispatched
	Deferred
	// Dropped means the directory declined the launch.
	Dropped
)

func (s Status) String() string {
	switch s {
	case Ignored:
		return "ignored"
	case Dispatched:
		return "dispatched"
	case Deferred:
		return "deferred"
	case Dropped:
		return "dropped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Request struct {
	Key         apps.Key
	BypassDelay bool
	// ClearSearch asks the caller to reset the search once the target is
	// actually dispatched, now or when its countdown completes.
	ClearSearch bool
}

type Outcome struct {
	Status      Status
	Entry       apps.Entry
	ClearSearch bool
}

// Countdown is a snapshot of the live delay session.
type Countdown struct {
	ID          string
	Entry       apps.Entry
	Remaining   int
	ClearSearch bool
	StartedAt   time.Time
}

type Options struct {
	TickInterval time.Duration

	// Ticks replaces the ticker behind each countdown. The returned func
	// stops the source.
	Ticks func(interval time.Duration) (<-chan time.Time, func())

	// OnComplete is called, with no locks held, after a countdown reaches
	// zero and its dispatch has been attempted.
	OnComplete func(Outcome)
}

type countdown struct {
	Countdown
	cancel context.CancelFunc
}

type Gate struct {
	dir   apps.Directory
	state *session.Container
	opts  Options
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active *countdown
	closed bool
}

func New(dir apps.Directory, state *session.Container, opts Options, log *zap.Logger) *Gate {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Ticks == nil {
		opts.Ticks = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{
		dir:    dir,
		state:  state,
		opts:   opts,
		log:    log.Named("gate"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RequestLaunch starts the target now, or defers it behind a countdown when
// it is in the delay set and the request does not bypass the delay.
func (g *Gate) RequestLaunch(ctx context.Context, req Request) Outcome {
	snap := g.state.Snapshot()

	if !req.BypassDelay && snap.DelayDurationSeconds > 0 {
		if entry, ok := snap.DelayedEntry(req.Key); ok {
			if g.startCountdown(entry, snap.DelayDurationSeconds, req.ClearSearch) {
				return Outcome{Status: Deferred, Entry: entry}
			}
			return Outcome{Status: Dropped, Entry: entry}
		}
	}

	entry, found := snap.Catalog(g.dir.PrimaryProfile()).Find(req.Key)
	if !found {
		entry = apps.Entry{Package: req.Key.Package, Profile: req.Key.Profile}
	}
	return g.dispatch(ctx, entry, found, req.ClearSearch)
}

// OnGesture launches the entry bound to g, if any.
func (g *Gate) OnGesture(ctx context.Context, gesture bindings.Gesture) Outcome {
	entry, ok := g.state.Snapshot().Binding(gesture)
	if !ok {
		g.log.Debug("gesture unbound", zap.Stringer("gesture", gesture))
		return Outcome{Status: Ignored}
	}
	return g.RequestLaunch(ctx, Request{Key: entry.Key()})
}

func (g *Gate) dispatch(ctx context.Context, entry apps.Entry, inCatalog bool, clearSearch bool) Outcome {
	primary := g.dir.PrimaryProfile()

	var err error
	switch {
	case entry.Profile == "" || entry.Profile == primary:
		err = g.dir.LaunchPrimary(ctx, entry.Package)
	default:
		err = g.dir.LaunchInProfile(ctx, entry.Package, entry.Profile)
	}

	if err != nil {
		if errors.Is(err, apps.ErrNoLaunchTarget) {
			g.log.Debug("no launch target", zap.Stringer("entry", entry.Key()), zap.Bool("in_catalog", inCatalog))
		} else {
			g.log.Warn("launch failed", zap.Stringer("entry", entry.Key()), zap.Error(err))
		}
		return Outcome{Status: Dropped, Entry: entry}
	}

	g.log.Info("launched", zap.Stringer("entry", entry.Key()), zap.Bool("secondary", entry.Profile != "" && entry.Profile != primary))
	return Outcome{Status: Dispatched, Entry: entry, ClearSearch: clearSearch}
}

// startCountdown replaces any live countdown with a new one for entry.
func (g *Gate) startCountdown(entry apps.Entry, seconds int, clearSearch bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	if g.active != nil {
		g.log.Info("countdown superseded", zap.String("id", g.active.ID), zap.Stringer("entry", g.active.Entry.Key()))
		g.active.cancel()
	}

	ctx, cancel := context.WithCancel(g.ctx)
	cd := &countdown{
		Countdown: Countdown{
			ID:          uuid.NewString(),
			Entry:       entry,
			Remaining:   seconds,
			ClearSearch: clearSearch,
			StartedAt:   time.Now(),
		},
		cancel: cancel,
	}
	g.active = cd
	g.publish(cd)

	g.log.Info("countdown started", zap.String("id", cd.ID), zap.Stringer("entry", entry.Key()), zap.Int("seconds", seconds))

	ticks, stop := g.opts.Ticks(g.opts.TickInterval)
	g.wg.Add(1)
	go g.run(ctx, cd, ticks, stop)
	return true
}

func (g *Gate) run(ctx context.Context, cd *countdown, ticks <-chan time.Time, stop func()) {
	defer g.wg.Done()
	defer logging.Recover(g.log, "countdown")
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}

		g.mu.Lock()
		// A cancel or a newer countdown may have won the race for the lock.
		if g.active != cd {
			g.mu.Unlock()
			return
		}
		cd.Remaining--
		if cd.Remaining > 0 {
			g.publish(cd)
			g.mu.Unlock()
			continue
		}

		g.active = nil
		cd.cancel()
		g.state.Update(func(s *session.State) { s.ClearCountdown() })
		g.mu.Unlock()

		g.log.Info("countdown complete", zap.String("id", cd.ID), zap.Stringer("entry", cd.Entry.Key()))
		out := g.dispatch(g.ctx, cd.Entry, true, cd.ClearSearch)
		if g.opts.OnComplete != nil {
			g.opts.OnComplete(out)
		}
		return
	}
}

// publish must be called with mu held.
func (g *Gate) publish(cd *countdown) {
	entry := cd.Entry
	remaining := cd.Remaining
	g.state.Update(func(s *session.State) {
		s.IsDelayingLaunch = true
		s.DelayTimerSeconds = remaining
		s.PendingLaunchApp = &entry
	})
}

// CancelDelay stops the live countdown. No tick runs after it returns. It
// reports the canceled countdown, or false when none was active.
func (g *Gate) CancelDelay() (Countdown, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cd := g.active
	if cd == nil {
		return Countdown{}, false
	}
	g.active = nil
	cd.cancel()
	g.state.Update(func(s *session.State) { s.ClearCountdown() })

	g.log.Info("countdown canceled", zap.String("id", cd.ID), zap.Stringer("entry", cd.Entry.Key()), zap.Int("remaining", cd.Remaining))
	return cd.Countdown, true
}

// Active returns the live countdown.
func (g *Gate) Active() (Countdown, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return Countdown{}, false
	}
	return g.active.Countdown, true
}

// Close cancels any countdown and waits for its goroutine.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.CancelDelay()
	g.cancel()
	g.wg.Wait()
}
