package apps

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Index enumerates every profile of a Directory into a Catalog. The latest
// catalog is published atomically and can be read at any time without
// waiting for a reload in progress.
type Index struct {
	dir         Directory
	log         *zap.Logger
	concurrency int

	catalog atomic.Pointer[Catalog]
	// reloadMu serializes reloads so two enumerations never interleave
	// their publishes.
	reloadMu sync.Mutex
}

func NewIndex(dir Directory, concurrency int, log *zap.Logger) *Index {
	if concurrency <= 0 {
		concurrency = 10
	}
	ix := &Index{
		dir:         dir,
		log:         log.Named("index"),
		concurrency: concurrency,
	}
	empty := NewCatalog(dir.PrimaryProfile(), nil)
	ix.catalog.Store(&empty)
	return ix
}

// Catalog returns the most recently published catalog.
func (ix *Index) Catalog() Catalog {
	return *ix.catalog.Load()
}

// Reload enumerates all profiles and publishes a new catalog. Enumeration
// failures degrade to narrower results and are only logged; the only error
// returned is the context's.
func (ix *Index) Reload(ctx context.Context) (Catalog, error) {
	ix.reloadMu.Lock()
	defer ix.reloadMu.Unlock()

	start := time.Now()
	primary := ix.dir.PrimaryProfile()
	profiles := ix.profiles(ctx, primary)

	perProfile := make([][]Entry, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i, profile := range profiles {
		i, profile := i, profile
		g.Go(func() error {
			perProfile[i] = ix.loadProfile(gctx, profile)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return ix.Catalog(), err
	}
	if err := ctx.Err(); err != nil {
		return ix.Catalog(), err
	}

	var entries []Entry
	for _, list := range perProfile {
		entries = append(entries, list...)
	}
	catalog := NewCatalog(primary, entries)
	ix.catalog.Store(&catalog)

	ix.log.Info("catalog reloaded",
		zap.Int("profiles", len(profiles)),
		zap.Int("entries", catalog.Len()),
		zap.Duration("took", time.Since(start)))
	return catalog, nil
}

// profiles lists active profiles with the primary first. A listing failure
// falls back to the primary profile alone.
func (ix *Index) profiles(ctx context.Context, primary ProfileID) []ProfileID {
	listed, err := ix.dir.ListProfiles(ctx)
	if err != nil {
		ix.log.Warn("profile enumeration failed, using primary only", zap.Error(err))
		return []ProfileID{primary}
	}

	profiles := []ProfileID{primary}
	seen := map[ProfileID]bool{primary: true}
	for _, p := range listed {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		profiles = append(profiles, p)
	}
	return profiles
}

// loadProfile resolves the activities of one profile. Entries whose icon
// cannot be resolved by any source are dropped.
func (ix *Index) loadProfile(ctx context.Context, profile ProfileID) []Entry {
	activities, err := ix.dir.ListActivities(ctx, profile)
	if err != nil {
		ix.log.Warn("activity enumeration failed", zap.String("profile", string(profile)), zap.Error(err))
		return nil
	}

	entries := make([]Entry, len(activities))
	resolved := make([]bool, len(activities))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, ix.concurrency)
	for i, activity := range activities {
		i, activity := i, activity
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					ix.log.Warn("activity resolution panicked",
						zap.String("package", activity.Package), zap.Any("panic", r))
				}
			}()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			entry, ok := ix.resolve(ctx, profile, activity)
			if ok {
				entries[i] = entry
				resolved[i] = true
			}
		}()
	}
	wg.Wait()

	out := make([]Entry, 0, len(activities))
	skipped := 0
	for i := range entries {
		if resolved[i] {
			out = append(out, entries[i])
		} else {
			skipped++
		}
	}
	ix.log.Debug("profile loaded",
		zap.String("profile", string(profile)),
		zap.Int("entries", len(out)),
		zap.Int("skipped", skipped))
	return out
}

func (ix *Index) resolve(ctx context.Context, profile ProfileID, a Activity) (Entry, bool) {
	if a.Package == "" || ctx.Err() != nil {
		return Entry{}, false
	}

	icon, err := ix.fetchIcon(ctx, profile, a)
	if err != nil {
		ix.log.Debug("dropping entry without icon",
			zap.String("package", a.Package),
			zap.String("profile", string(profile)),
			zap.Error(err))
		return Entry{}, false
	}

	return Entry{
		Package: a.Package,
		Name:    a.Label,
		Icon:    icon,
		Profile: profile,
	}, true
}

var errNoIcon = errors.New("icon not found")

// fetchIcon prefers the badged icon and falls back to the plain package icon.
func (ix *Index) fetchIcon(ctx context.Context, profile ProfileID, a Activity) (Icon, error) {
	if a.FetchIcon != nil {
		icon, err := a.FetchIcon(ctx)
		if err == nil && icon != "" {
			return icon, nil
		}
	}
	icon, err := ix.dir.PackageIcon(ctx, a.Package, profile)
	if err != nil {
		return "", err
	}
	if icon == "" {
		return "", errNoIcon
	}
	return icon, nil
}
