package apps

import (
	"context"
	"errors"
)

// ErrNoLaunchTarget is returned by a Directory when a package has no
// launchable activity in the requested profile.
var ErrNoLaunchTarget = errors.New("no launchable activity")

// Activity is one launchable activity reported by a Directory.
type Activity struct {
	Package string
	Label   string
	// FetchIcon returns the profile-badged icon. It may fail; the index then
	// falls back to Directory.PackageIcon.
	FetchIcon func(ctx context.Context) (Icon, error)
}

// Directory is the OS application registry and process-launch facility.
type Directory interface {
	PrimaryProfile() ProfileID
	ListProfiles(ctx context.Context) ([]ProfileID, error)
	ListActivities(ctx context.Context, profile ProfileID) ([]Activity, error)
	PackageIcon(ctx context.Context, pkg string, profile ProfileID) (Icon, error)
	LaunchPrimary(ctx context.Context, pkg string) error
	LaunchInProfile(ctx context.Context, pkg string, profile ProfileID) error
}
