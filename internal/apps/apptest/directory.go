// Package apptest provides an in-memory apps.Directory for tests.
package apptest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chess10kp/vibe/internal/apps"
)

var ErrInjected = errors.New("injected failure")

// App is one installed application in the fake directory.
type App struct {
	Package string
	Label   string
	Profile apps.ProfileID

	// BadgedIcon and PlainIcon are returned by the icon lookups; an empty
	// value makes the lookup fail.
	BadgedIcon apps.Icon
	PlainIcon  apps.Icon
}

// Dispatch records one launch request that reached the directory.
type Dispatch struct {
	Package string
	Profile apps.ProfileID
	Primary bool
}

// Directory is a configurable, concurrency-safe apps.Directory.
type Directory struct {
	mu sync.Mutex

	Primary        apps.ProfileID
	Apps           []App
	FailProfiles   bool
	FailActivities map[apps.ProfileID]bool
	FailLaunch     bool
	dispatches     []Dispatch
	dispatchNotify chan Dispatch
}

func NewDirectory(primary apps.ProfileID, list ...App) *Directory {
	return &Directory{
		Primary:        primary,
		Apps:           list,
		FailActivities: make(map[apps.ProfileID]bool),
		dispatchNotify: make(chan Dispatch, 64),
	}
}

// PrimaryApp is a shorthand for an app in the primary profile with both icons.
func PrimaryApp(d *Directory, label, pkg string) App {
	return App{Package: pkg, Label: label, Profile: d.Primary, BadgedIcon: apps.Icon(pkg + ".png"), PlainIcon: apps.Icon(pkg)}
}

func (d *Directory) Add(a App) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Apps = append(d.Apps, a)
}

func (d *Directory) Remove(pkg string, profile apps.ProfileID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.Apps[:0]
	for _, a := range d.Apps {
		if a.Package == pkg && a.Profile == profile {
			continue
		}
		kept = append(kept, a)
	}
	d.Apps = kept
}

func (d *Directory) PrimaryProfile() apps.ProfileID {
	return d.Primary
}

func (d *Directory) ListProfiles(ctx context.Context) ([]apps.ProfileID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailProfiles {
		return nil, ErrInjected
	}
	seen := map[apps.ProfileID]bool{}
	profiles := []apps.ProfileID{}
	for _, a := range d.Apps {
		if !seen[a.Profile] {
			seen[a.Profile] = true
			profiles = append(profiles, a.Profile)
		}
	}
	return profiles, nil
}

func (d *Directory) ListActivities(ctx context.Context, profile apps.ProfileID) ([]apps.Activity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailActivities[profile] {
		return nil, ErrInjected
	}
	var out []apps.Activity
	for _, a := range d.Apps {
		if a.Profile != profile {
			continue
		}
		badged := a.BadgedIcon
		out = append(out, apps.Activity{
			Package: a.Package,
			Label:   a.Label,
			FetchIcon: func(context.Context) (apps.Icon, error) {
				if badged == "" {
					return "", ErrInjected
				}
				return badged, nil
			},
		})
	}
	return out, nil
}

func (d *Directory) PackageIcon(ctx context.Context, pkg string, profile apps.ProfileID) (apps.Icon, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.Apps {
		if a.Package == pkg && a.Profile == profile && a.PlainIcon != "" {
			return a.PlainIcon, nil
		}
	}
	return "", fmt.Errorf("%s: %w", pkg, ErrInjected)
}

func (d *Directory) LaunchPrimary(ctx context.Context, pkg string) error {
	return d.launch(pkg, d.Primary, true)
}

func (d *Directory) LaunchInProfile(ctx context.Context, pkg string, profile apps.ProfileID) error {
	return d.launch(pkg, profile, false)
}

func (d *Directory) launch(pkg string, profile apps.ProfileID, primary bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailLaunch {
		return ErrInjected
	}
	found := false
	for _, a := range d.Apps {
		if a.Package == pkg && a.Profile == profile {
			found = true
			break
		}
	}
	if !found {
		return apps.ErrNoLaunchTarget
	}
	rec := Dispatch{Package: pkg, Profile: profile, Primary: primary}
	d.dispatches = append(d.dispatches, rec)
	select {
	case d.dispatchNotify <- rec:
	default:
	}
	return nil
}

// Dispatches returns a copy of every successful launch so far.
func (d *Directory) Dispatches() []Dispatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dispatch(nil), d.dispatches...)
}

// Dispatched delivers each successful launch as it happens.
func (d *Directory) Dispatched() <-chan Dispatch {
	return d.dispatchNotify
}
