package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "vibe", cfg.AppName)
	assert.Equal(t, 60, cfg.Launcher.Delay.DefaultSeconds)
	assert.Equal(t, time.Second, cfg.Launcher.Delay.TickInterval.Duration)
	assert.NotContains(t, cfg.DataDir, "~")
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_OverridesAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
socket_path = "/tmp/test_vibe_socket"

[launcher.delay]
default_seconds = 10
tick_interval = "250ms"

[store]
backend = "memory"

[directory]
primary_profile = "personal"
watch = false

[[directory.profiles]]
id = "personal"
application_dirs = ["/opt/apps"]

[[directory.profiles]]
id = "work"
application_dirs = ["/opt/work-apps"]
launch_prefix = ["firejail", "--profile=work"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadAndValidateConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test_vibe_socket", cfg.SocketPath)
	assert.Equal(t, 10, cfg.Launcher.Delay.DefaultSeconds)
	assert.Equal(t, 250*time.Millisecond, cfg.Launcher.Delay.TickInterval.Duration)
	// untouched sections keep their defaults
	assert.Equal(t, 120, cfg.Launcher.Delay.MaxSeconds)

	work, ok := cfg.Profile("work")
	require.True(t, ok)
	assert.Equal(t, []string{"firejail", "--profile=work"}, work.LaunchPrefix)
	_, ok = cfg.Profile("school")
	assert.False(t, ok)
}

func TestLoadConfig_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[launcher\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestDefault_IsDeepCopy(t *testing.T) {
	a := Default()
	a.Directory.Profiles[0].ApplicationDirs[0] = "/changed"
	a.Launcher.Icons.Extensions[0] = ".bmp"

	b := Default()
	assert.NotEqual(t, "/changed", b.Directory.Profiles[0].ApplicationDirs[0])
	assert.Equal(t, ".png", b.Launcher.Icons.Extensions[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"search cache too small", func(c *Config) { c.Launcher.Search.CacheSize = 1 }, "cache_size"},
		{"min above max", func(c *Config) { c.Launcher.Delay.MinSeconds = 200 }, "delay bounds"},
		{"default outside bounds", func(c *Config) { c.Launcher.Delay.DefaultSeconds = 1 }, "default delay"},
		{"tick too fast", func(c *Config) { c.Launcher.Delay.TickInterval = Duration{time.Millisecond} }, "tick_interval"},
		{"unknown store", func(c *Config) { c.Store.Backend = "redis" }, "store backend"},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "requires a path"},
		{"memory without path", func(c *Config) { c.Store = StoreConfig{Backend: "memory"} }, ""},
		{"no profiles", func(c *Config) { c.Directory.Profiles = nil }, "at least one profile"},
		{"duplicate profile", func(c *Config) {
			c.Directory.Profiles = append(c.Directory.Profiles, c.Directory.Profiles[0])
		}, "duplicate"},
		{"unknown primary", func(c *Config) { c.Directory.PrimaryProfile = "work" }, "primary_profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Launcher.Delay.DefaultSeconds = 42
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadAndValidateConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Launcher.Delay.DefaultSeconds)
	assert.Equal(t, cfg.Directory.WatchDebounce, loaded.Directory.WatchDebounce)
}
