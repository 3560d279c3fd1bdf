// Package core wires the launcher components into one session and exposes
// the commands the presentation layer and the IPC socket issue.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
	"github.com/chess10kp/vibe/internal/config"
	"github.com/chess10kp/vibe/internal/gate"
	"github.com/chess10kp/vibe/internal/logging"
	"github.com/chess10kp/vibe/internal/search"
	"github.com/chess10kp/vibe/internal/session"
	"github.com/chess10kp/vibe/internal/settings"
	"github.com/chess10kp/vibe/internal/usage"
)

var (
	ErrNoPickTarget = errors.New("app picker is not open")
	ErrUnknownEntry = errors.New("no such app")
)

// Deps are the collaborators an App is built from. Usage and HomeSettings
// are optional.
type Deps struct {
	Config    *config.Config
	Directory apps.Directory
	Settings  settings.Store
	Usage     *usage.Tracker
	Log       *zap.Logger

	// HomeSettings opens the system's default-launcher settings.
	HomeSettings func(ctx context.Context) error
}

type App struct {
	cfg          *config.Config
	log          *zap.Logger
	dir          apps.Directory
	index        *apps.Index
	engine       *search.Engine
	bindings     *bindings.Store
	usage        *usage.Tracker
	state        *session.Container
	gate         *gate.Gate
	homeSettings func(ctx context.Context) error

	// mu serializes commands.
	mu sync.Mutex

	reloadMu     sync.Mutex
	reloadSeq    uint64
	reloadCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(deps Deps) (*App, error) {
	cfg := deps.Config
	log := deps.Log.Named("core")

	engine, err := search.NewEngine(cfg.Launcher.Search.CacheSize, deps.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create search engine: %w", err)
	}

	store := bindings.NewStore(deps.Settings, bindings.Preferences{
		AutoLaunchDefault:   cfg.Launcher.Behavior.AutoLaunchEnabled,
		DelayDefaultSeconds: cfg.Launcher.Delay.DefaultSeconds,
		DelayMinSeconds:     cfg.Launcher.Delay.MinSeconds,
		DelayMaxSeconds:     cfg.Launcher.Delay.MaxSeconds,
	}, deps.Log)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:          cfg,
		log:          log,
		dir:          deps.Directory,
		index:        apps.NewIndex(deps.Directory, cfg.Launcher.Behavior.EnumerationConcurrency, deps.Log),
		engine:       engine,
		bindings:     store,
		usage:        deps.Usage,
		homeSettings: deps.HomeSettings,
		ctx:          ctx,
		cancel:       cancel,
	}

	a.state = session.NewContainer(session.State{
		AllApps:              []apps.Entry{},
		FilteredApps:         []apps.Entry{},
		AutoLaunchEnabled:    store.AutoLaunchEnabled(),
		DelayDurationSeconds: store.DelayDuration(),
		DelayedApps:          []apps.Entry{},
	})

	a.gate = gate.New(deps.Directory, a.state, gate.Options{
		TickInterval: cfg.Launcher.Delay.TickInterval.Duration,
		OnComplete:   a.onCountdownComplete,
	}, deps.Log)

	return a, nil
}

// State is the read-only view for the presentation layer.
func (a *App) State() session.Reader {
	return a.state
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// runSearch must be called with mu held. It publishes the result and
// returns the auto-launch candidate.
func (a *App) runSearch(text string) *apps.Entry {
	catalog := a.index.Catalog()
	enabled := a.state.Snapshot().AutoLaunchEnabled

	result := a.engine.Search(text, catalog)
	candidate := result.AutoLaunch(enabled)

	var suggestions []apps.Entry
	if !result.Blank && result.Len() == 0 {
		suggestions = a.engine.Suggest(text, catalog, a.cfg.Launcher.Search.SuggestionLimit)
	}

	a.state.Update(func(s *session.State) {
		s.SearchText = text
		s.FilteredApps = result.Entries()
		s.Suggestions = suggestions
		s.AutoLaunchApp = candidate
	})
	return candidate
}

// SetSearchText updates the query. With auto-dispatch on, a query that
// narrows to one entry requests its launch.
func (a *App) SetSearchText(ctx context.Context, text string) gate.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.state.Snapshot().AutoLaunchApp
	candidate := a.runSearch(text)
	if candidate == nil || !a.cfg.Launcher.Behavior.AutoDispatch {
		return gate.Outcome{Status: gate.Ignored}
	}

	// A keystroke that keeps the same candidate does not launch it again,
	// and never restarts the countdown already running for it.
	key := candidate.Key()
	if previous != nil && previous.Key() == key {
		return gate.Outcome{Status: gate.Ignored}
	}
	if cd, ok := a.gate.Active(); ok && cd.Entry.Key() == key {
		a.log.Debug("candidate already counting down", zap.Stringer("entry", key), zap.String("id", cd.ID))
		return gate.Outcome{Status: gate.Ignored}
	}

	a.log.Debug("auto-launch candidate", zap.Stringer("entry", key))
	return a.requestLaunch(ctx, gate.Request{Key: key, ClearSearch: true})
}

func (a *App) ClearSearch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runSearch("")
}

// LaunchFirstResult is the keyboard's search action. It launches the result
// only when the query narrowed to one app and auto-launch is enabled.
func (a *App) LaunchFirstResult(ctx context.Context) gate.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	candidate := a.state.Snapshot().AutoLaunchApp
	if candidate == nil {
		return gate.Outcome{Status: gate.Ignored}
	}
	return a.requestLaunch(ctx, gate.Request{Key: candidate.Key(), ClearSearch: true})
}

func (a *App) RequestLaunch(ctx context.Context, req gate.Request) gate.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requestLaunch(ctx, req)
}

func (a *App) requestLaunch(ctx context.Context, req gate.Request) gate.Outcome {
	out := a.gate.RequestLaunch(ctx, req)
	a.afterOutcome(out)
	return out
}

func (a *App) Swipe(ctx context.Context, g bindings.Gesture) gate.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.gate.OnGesture(ctx, g)
	a.afterOutcome(out)
	return out
}

// afterOutcome must be called with mu held.
func (a *App) afterOutcome(out gate.Outcome) {
	if out.Status != gate.Dispatched {
		return
	}
	if a.usage != nil {
		a.usage.RecordLaunch(out.Entry.Key())
	}
	if out.ClearSearch {
		a.runSearch("")
	}
}

func (a *App) onCountdownComplete(out gate.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.afterOutcome(out)
}

func (a *App) CancelDelay() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cd, ok := a.gate.CancelDelay()
	if ok && a.usage != nil {
		a.usage.RecordCancel(cd.Entry.Key())
	}
	return ok
}

func (a *App) ShowSettings() {
	a.state.Update(func(s *session.State) { s.ShowSettings = true })
}

// HideSettings also closes the picker opened from it.
func (a *App) HideSettings() {
	a.state.Update(func(s *session.State) {
		s.ShowSettings = false
		s.ShowAppPicker = false
		s.PickingTarget = bindings.PickNone
	})
}

func (a *App) ShowPicker(target bindings.PickTarget) {
	a.state.Update(func(s *session.State) {
		s.ShowAppPicker = true
		s.PickingTarget = target
	})
}

func (a *App) HidePicker() {
	a.state.Update(func(s *session.State) {
		s.ShowAppPicker = false
		s.PickingTarget = bindings.PickNone
	})
}

// SelectFromPicker routes the chosen entry to the binding or delay set the
// picker was opened for, then closes the picker.
func (a *App) SelectFromPicker(key apps.Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	target := a.state.Snapshot().PickingTarget
	if target == bindings.PickNone {
		return ErrNoPickTarget
	}

	entry, ok := a.index.Catalog().Find(key)
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownEntry)
	}

	var err error
	if g, ok := target.Gesture(); ok {
		err = a.bindings.SetBinding(g, &entry)
	} else {
		_, err = a.bindings.AddDelayed(entry)
	}

	a.refreshBindings()
	a.state.Update(func(s *session.State) {
		s.ShowAppPicker = false
		s.PickingTarget = bindings.PickNone
	})
	return err
}

// ClearBinding unbinds a gesture.
func (a *App) ClearBinding(g bindings.Gesture) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.bindings.SetBinding(g, nil)
	a.refreshBindings()
	return err
}

// refreshBindings must be called with mu held.
func (a *App) refreshBindings() {
	resolved := a.bindings.Load(a.index.Catalog())
	a.state.Update(func(s *session.State) {
		s.Bindings = resolved.Bindings
		s.DelayedApps = resolved.Delayed
	})
}

func (a *App) SetAutoLaunchEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.bindings.SetAutoLaunchEnabled(enabled)
	a.state.Update(func(s *session.State) { s.AutoLaunchEnabled = enabled })
	// the candidate depends on the flag; toggling never launches
	a.runSearch(a.state.Snapshot().SearchText)
	return err
}

// SetDelayDuration stores the clamped duration and returns it.
func (a *App) SetDelayDuration(seconds int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored, err := a.bindings.SetDelayDuration(seconds)
	a.state.Update(func(s *session.State) { s.DelayDurationSeconds = stored })
	return stored, err
}

func (a *App) AddDelayed(key apps.Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.index.Catalog().Find(key)
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownEntry)
	}
	if _, err := a.bindings.AddDelayed(entry); err != nil {
		return err
	}
	a.refreshBindings()
	return nil
}

// RemoveDelayed also removes references to apps missing from the catalog.
func (a *App) RemoveDelayed(key apps.Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.index.Catalog().Find(key)
	if !ok {
		primary := a.dir.PrimaryProfile()
		entry = apps.Entry{
			Package:   key.Package,
			Profile:   key.Profile,
			Secondary: key.Profile != "" && key.Profile != primary,
		}
	}
	if _, err := a.bindings.RemoveDelayed(entry); err != nil {
		return err
	}
	a.refreshBindings()
	return nil
}

// OpenDefaultLauncherSettings hands off to the system settings, if a
// handler is configured.
func (a *App) OpenDefaultLauncherSettings(ctx context.Context) error {
	if a.homeSettings == nil {
		a.log.Info("no home settings handler configured")
		return nil
	}
	return a.homeSettings(ctx)
}

// Reload enumerates the catalog in the background. A newer reload cancels
// an older one still running. The returned channel yields the result once.
func (a *App) Reload() <-chan error {
	done := make(chan error, 1)

	a.reloadMu.Lock()
	if a.reloadCancel != nil {
		a.reloadCancel()
	}
	a.reloadSeq++
	seq := a.reloadSeq
	ctx, cancel := context.WithTimeout(a.ctx, a.reloadTimeout())
	a.reloadCancel = cancel
	a.reloadMu.Unlock()

	a.state.Update(func(s *session.State) { s.Reloading = true })

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()
		defer logging.Recover(a.log, "reload")

		start := time.Now()
		_, err := a.index.Reload(ctx)
		if err != nil {
			a.log.Info("reload canceled", zap.Uint64("seq", seq), zap.Error(err))
			a.finishReload(seq)
			done <- err
			return
		}

		// a newer reload may already have published; always apply the latest
		a.mu.Lock()
		catalog := a.index.Catalog()
		a.refreshBindings()
		a.state.Update(func(s *session.State) { s.AllApps = catalog.Entries })
		a.runSearch(a.state.Snapshot().SearchText)
		a.mu.Unlock()

		a.finishReload(seq)
		a.log.Info("session refreshed", zap.Int("entries", catalog.Len()), zap.Duration("took", time.Since(start)))
		done <- nil
	}()
	return done
}

func (a *App) reloadTimeout() time.Duration {
	if d := a.cfg.Launcher.Behavior.ReloadTimeout.Duration; d > 0 {
		return d
	}
	return 30 * time.Second
}

func (a *App) finishReload(seq uint64) {
	a.reloadMu.Lock()
	latest := seq == a.reloadSeq
	a.reloadMu.Unlock()

	if latest {
		a.state.Update(func(s *session.State) { s.Reloading = false })
	}
}

// Stats returns the most used entries, highest first.
func (a *App) Stats(limit int) []usage.Match {
	if a.usage == nil {
		return []usage.Match{}
	}
	return a.usage.Top(limit)
}

// Close cancels background work and any countdown and waits for them.
func (a *App) Close() {
	a.cancel()
	a.gate.Close()
	a.wg.Wait()
	a.log.Info("core stopped")
}
