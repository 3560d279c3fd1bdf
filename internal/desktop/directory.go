// Package desktop is the freedesktop implementation of apps.Directory.
// Each configured profile is a set of application directories holding
// .desktop files; the package name of an entry is its desktop file ID.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/config"
)

type Directory struct {
	profiles  []config.ProfileConfig
	primary   apps.ProfileID
	themeDirs []string
	icons     *IconResolver
	spawner   Spawner
	log       *zap.Logger

	mu      sync.RWMutex
	entries map[apps.ProfileID]map[string]desktopEntry
}

var _ apps.Directory = (*Directory)(nil)

func NewDirectory(cfg *config.Config, icons *IconResolver, spawner Spawner, log *zap.Logger) *Directory {
	return &Directory{
		profiles:  cfg.Directory.Profiles,
		primary:   apps.ProfileID(cfg.Directory.PrimaryProfile),
		themeDirs: cfg.Launcher.Icons.ThemeDirs,
		icons:     icons,
		spawner:   spawner,
		log:       log.Named("desktop"),
		entries:   make(map[apps.ProfileID]map[string]desktopEntry),
	}
}

func (d *Directory) PrimaryProfile() apps.ProfileID {
	return d.primary
}

// ListProfiles returns the configured profiles that have at least one
// existing application directory. The primary profile is always listed.
func (d *Directory) ListProfiles(ctx context.Context) ([]apps.ProfileID, error) {
	out := []apps.ProfileID{d.primary}
	for _, p := range d.profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := apps.ProfileID(p.ID)
		if id == d.primary {
			continue
		}
		if anyDirExists(p.ApplicationDirs) {
			out = append(out, id)
		}
	}
	return out, nil
}

func anyDirExists(dirs []string) bool {
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func (d *Directory) profile(id apps.ProfileID) (config.ProfileConfig, error) {
	for _, p := range d.profiles {
		if apps.ProfileID(p.ID) == id {
			return p, nil
		}
	}
	return config.ProfileConfig{}, fmt.Errorf("unknown profile %q", id)
}

// ListActivities scans the profile's application directories. The first
// directory holding a given desktop file ID wins, following XDG precedence.
func (d *Directory) ListActivities(ctx context.Context, id apps.ProfileID) ([]apps.Activity, error) {
	p, err := d.profile(id)
	if err != nil {
		return nil, err
	}

	found, err := d.scan(ctx, p)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.entries[id] = found
	d.mu.Unlock()

	ids := make([]string, 0, len(found))
	for fid := range found {
		ids = append(ids, fid)
	}
	sort.Strings(ids)

	out := make([]apps.Activity, 0, len(ids))
	for _, fid := range ids {
		e := found[fid]
		if e.NoDisplay {
			continue
		}
		iconName, iconDirs := e.Icon, p.IconDirs
		out = append(out, apps.Activity{
			Package: e.ID,
			Label:   e.Name,
			FetchIcon: func(context.Context) (apps.Icon, error) {
				if len(iconDirs) == 0 {
					return "", fmt.Errorf("profile %s has no badged icons: %w", id, errIconNotFound)
				}
				path, err := d.icons.Resolve(iconName, iconDirs)
				return apps.Icon(path), err
			},
		})
	}
	return out, nil
}

func (d *Directory) scan(ctx context.Context, p config.ProfileConfig) (map[string]desktopEntry, error) {
	found := make(map[string]desktopEntry)
	for _, dir := range p.ApplicationDirs {
		err := filepath.WalkDir(dir, func(path string, de os.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return filepath.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if de.IsDir() || !strings.HasSuffix(path, ".desktop") {
				return nil
			}
			if _, seen := found[fileID(path)]; seen {
				return nil
			}

			entry, err := parseDesktopFile(path)
			if err != nil {
				d.log.Debug("skipping desktop file", zap.String("file", path), zap.Error(err))
				return nil
			}
			found[entry.ID] = entry
			return nil
		})
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return found, nil
}

// lookup returns a desktop entry, rescanning the profile when it is not in
// the last scan.
func (d *Directory) lookup(ctx context.Context, pkg string, id apps.ProfileID) (desktopEntry, config.ProfileConfig, error) {
	p, err := d.profile(id)
	if err != nil {
		return desktopEntry{}, p, err
	}

	d.mu.RLock()
	e, ok := d.entries[id][pkg]
	d.mu.RUnlock()
	if ok {
		return e, p, nil
	}

	found, err := d.scan(ctx, p)
	if err != nil {
		return desktopEntry{}, p, err
	}
	d.mu.Lock()
	d.entries[id] = found
	d.mu.Unlock()

	if e, ok := found[pkg]; ok {
		return e, p, nil
	}
	return desktopEntry{}, p, fmt.Errorf("%s in %s: %w", pkg, id, apps.ErrNoLaunchTarget)
}

// PackageIcon resolves the unbadged icon of a package from the theme
// directories.
func (d *Directory) PackageIcon(ctx context.Context, pkg string, id apps.ProfileID) (apps.Icon, error) {
	e, _, err := d.lookup(ctx, pkg, id)
	if err != nil {
		return "", err
	}
	path, err := d.icons.Resolve(e.Icon, d.themeDirs)
	return apps.Icon(path), err
}

func (d *Directory) LaunchPrimary(ctx context.Context, pkg string) error {
	return d.launch(ctx, pkg, d.primary)
}

func (d *Directory) LaunchInProfile(ctx context.Context, pkg string, id apps.ProfileID) error {
	return d.launch(ctx, pkg, id)
}

func (d *Directory) launch(ctx context.Context, pkg string, id apps.ProfileID) error {
	e, p, err := d.lookup(ctx, pkg, id)
	if err != nil {
		return err
	}

	argv := append(append([]string(nil), p.LaunchPrefix...), execArgs(e.Exec)...)
	if len(argv) == 0 {
		return fmt.Errorf("%s: empty Exec: %w", pkg, apps.ErrNoLaunchTarget)
	}

	if err := d.spawner.Spawn(ctx, argv); err != nil {
		return fmt.Errorf("failed to launch %s: %w", pkg, err)
	}
	d.log.Debug("spawned", zap.String("package", pkg), zap.String("profile", string(id)), zap.Strings("argv", argv))
	return nil
}

// ApplicationDirs lists every directory of every profile, for the watcher.
func (d *Directory) ApplicationDirs() []string {
	var dirs []string
	for _, p := range d.profiles {
		dirs = append(dirs, p.ApplicationDirs...)
	}
	return dirs
}

// IsNotFound reports whether err means a desktop entry or icon is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, apps.ErrNoLaunchTarget) || errors.Is(err, errIconNotFound)
}
