package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the daemon and the validator look for a config file.
const DefaultPath = "~/.config/vibe/config.toml"

type Config struct {
	AppName    string          `toml:"app_name"`
	SocketPath string          `toml:"socket_path"`
	DataDir    string          `toml:"data_dir"`
	PidFile    string          `toml:"pid_file"`
	Logging    LoggingConfig   `toml:"logging"`
	Launcher   LauncherConfig  `toml:"launcher"`
	Store      StoreConfig     `toml:"store"`
	Directory  DirectoryConfig `toml:"directory"`
}

type LoggingConfig struct {
	Level       string   `toml:"level"`
	Development bool     `toml:"development"`
	OutputPaths []string `toml:"output_paths"`
}

type LauncherConfig struct {
	Search   SearchConfig   `toml:"search"`
	Behavior BehaviorConfig `toml:"behavior"`
	Delay    DelayConfig    `toml:"delay"`
	Icons    IconsConfig    `toml:"icons"`
}

type SearchConfig struct {
	CacheSize       int `toml:"cache_size"`
	SuggestionLimit int `toml:"suggestion_limit"`
}

type BehaviorConfig struct {
	AutoDispatch           bool     `toml:"auto_dispatch"`
	AutoLaunchEnabled      bool     `toml:"auto_launch_enabled"`
	HomeSettingsCommand    []string `toml:"home_settings_command"`
	ReloadTimeout          Duration `toml:"reload_timeout"`
	EnumerationConcurrency int      `toml:"enumeration_concurrency"`
}

type DelayConfig struct {
	DefaultSeconds int      `toml:"default_seconds"`
	MinSeconds     int      `toml:"min_seconds"`
	MaxSeconds     int      `toml:"max_seconds"`
	TickInterval   Duration `toml:"tick_interval"`
}

type IconsConfig struct {
	CacheSize  int      `toml:"cache_size"`
	Extensions []string `toml:"extensions"`
	ThemeDirs  []string `toml:"theme_dirs"`
}

type StoreConfig struct {
	Backend string `toml:"backend"` // sqlite, yaml or memory
	Path    string `toml:"path"`
}

type DirectoryConfig struct {
	PrimaryProfile string          `toml:"primary_profile"`
	Watch          bool            `toml:"watch"`
	WatchDebounce  Duration        `toml:"watch_debounce"`
	Profiles       []ProfileConfig `toml:"profiles"`
}

// ProfileConfig describes one user profile: where its .desktop entries live
// and how a process is started inside it.
type ProfileConfig struct {
	ID              string   `toml:"id"`
	ApplicationDirs []string `toml:"application_dirs"`
	IconDirs        []string `toml:"icon_dirs"`
	LaunchPrefix    []string `toml:"launch_prefix"`
}

// Duration is a time.Duration that reads and writes as a string ("1s", "250ms").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

var DefaultConfig = Config{
	AppName:    "vibe",
	SocketPath: "/tmp/vibe_socket",
	DataDir:    "~/.local/share/vibe",
	PidFile:    "/tmp/vibe.pid",
	Logging: LoggingConfig{
		Level:       "info",
		Development: false,
		OutputPaths: []string{"stderr"},
	},
	Launcher: LauncherConfig{
		Search: SearchConfig{
			CacheSize:       200,
			SuggestionLimit: 3,
		},
		Behavior: BehaviorConfig{
			AutoDispatch:           true,
			AutoLaunchEnabled:      true,
			HomeSettingsCommand:    []string{},
			ReloadTimeout:          Duration{30 * time.Second},
			EnumerationConcurrency: 10,
		},
		Delay: DelayConfig{
			DefaultSeconds: 60,
			MinSeconds:     5,
			MaxSeconds:     120,
			TickInterval:   Duration{time.Second},
		},
		Icons: IconsConfig{
			CacheSize:  500,
			Extensions: []string{".png", ".svg", ".xpm"},
			ThemeDirs: []string{
				"~/.local/share/icons",
				"/usr/share/icons/hicolor",
				"/usr/share/pixmaps",
			},
		},
	},
	Store: StoreConfig{
		Backend: "sqlite",
		Path:    "~/.local/share/vibe/settings.db",
	},
	Directory: DirectoryConfig{
		PrimaryProfile: "personal",
		Watch:          true,
		WatchDebounce:  Duration{500 * time.Millisecond},
		Profiles: []ProfileConfig{
			{
				ID: "personal",
				ApplicationDirs: []string{
					"~/.local/share/applications",
					"/usr/share/applications",
					"/usr/local/share/applications",
				},
				IconDirs:     []string{},
				LaunchPrefix: []string{},
			},
		},
	},
}

// Default returns a deep copy of DefaultConfig so callers can mutate it freely.
func Default() *Config {
	cfg := DefaultConfig
	cfg.Logging.OutputPaths = append([]string(nil), DefaultConfig.Logging.OutputPaths...)
	cfg.Launcher.Behavior.HomeSettingsCommand = append([]string(nil), DefaultConfig.Launcher.Behavior.HomeSettingsCommand...)
	cfg.Launcher.Icons.Extensions = append([]string(nil), DefaultConfig.Launcher.Icons.Extensions...)
	cfg.Launcher.Icons.ThemeDirs = append([]string(nil), DefaultConfig.Launcher.Icons.ThemeDirs...)
	cfg.Directory.Profiles = make([]ProfileConfig, len(DefaultConfig.Directory.Profiles))
	for i, p := range DefaultConfig.Directory.Profiles {
		cfg.Directory.Profiles[i] = ProfileConfig{
			ID:              p.ID,
			ApplicationDirs: append([]string(nil), p.ApplicationDirs...),
			IconDirs:        append([]string(nil), p.IconDirs...),
			LaunchPrefix:    append([]string(nil), p.LaunchPrefix...),
		}
	}
	return &cfg
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	expandedPath := ExpandPath(path)

	cfg := Default()
	if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
		cfg.expandPaths()
		return cfg, nil
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", expandedPath, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func LoadAndValidateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() {
	c.SocketPath = ExpandPath(c.SocketPath)
	c.DataDir = ExpandPath(c.DataDir)
	c.PidFile = ExpandPath(c.PidFile)
	c.Store.Path = ExpandPath(c.Store.Path)
	for i, p := range c.Logging.OutputPaths {
		c.Logging.OutputPaths[i] = ExpandPath(p)
	}
	for i, dir := range c.Launcher.Icons.ThemeDirs {
		c.Launcher.Icons.ThemeDirs[i] = ExpandPath(dir)
	}
	for i := range c.Directory.Profiles {
		p := &c.Directory.Profiles[i]
		for j, dir := range p.ApplicationDirs {
			p.ApplicationDirs[j] = ExpandPath(dir)
		}
		for j, dir := range p.IconDirs {
			p.IconDirs[j] = ExpandPath(dir)
		}
	}
}

// ExpandPath expands a leading ~ to the current user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		usr, err := user.Current()
		if err == nil {
			return filepath.Join(usr.HomeDir, path[1:])
		}
	}
	return path
}

func SaveConfig(cfg *Config, path string) error {
	expandedPath := ExpandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(expandedPath, data, 0644)
}

// Profile returns the profile config with the given id.
func (c *Config) Profile(id string) (ProfileConfig, bool) {
	for _, p := range c.Directory.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return ProfileConfig{}, false
}

func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateDelay(); err != nil {
		return err
	}
	if err := c.validateIcons(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateDirectory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
}

func (c *Config) validateSearch() error {
	s := c.Launcher.Search
	if s.CacheSize < 10 || s.CacheSize > 10000 {
		return fmt.Errorf("invalid search cache_size: %d (must be 10-10000)", s.CacheSize)
	}
	if s.SuggestionLimit < 0 || s.SuggestionLimit > 50 {
		return fmt.Errorf("invalid suggestion_limit: %d (must be 0-50)", s.SuggestionLimit)
	}
	b := c.Launcher.Behavior
	if b.EnumerationConcurrency < 1 || b.EnumerationConcurrency > 64 {
		return fmt.Errorf("invalid enumeration_concurrency: %d (must be 1-64)", b.EnumerationConcurrency)
	}
	if b.ReloadTimeout.Duration < time.Second || b.ReloadTimeout.Duration > 10*time.Minute {
		return fmt.Errorf("invalid reload_timeout: %v (must be 1s-10m)", b.ReloadTimeout.Duration)
	}
	return nil
}

func (c *Config) validateDelay() error {
	d := c.Launcher.Delay
	if d.MinSeconds < 1 || d.MaxSeconds > 3600 || d.MinSeconds > d.MaxSeconds {
		return fmt.Errorf("invalid delay bounds: %d-%d (need 1 <= min <= max <= 3600)", d.MinSeconds, d.MaxSeconds)
	}
	if d.DefaultSeconds < d.MinSeconds || d.DefaultSeconds > d.MaxSeconds {
		return fmt.Errorf("invalid default delay: %d (must be %d-%d)", d.DefaultSeconds, d.MinSeconds, d.MaxSeconds)
	}
	if d.TickInterval.Duration < 10*time.Millisecond || d.TickInterval.Duration > 10*time.Second {
		return fmt.Errorf("invalid tick_interval: %v (must be 10ms-10s)", d.TickInterval.Duration)
	}
	return nil
}

func (c *Config) validateIcons() error {
	i := c.Launcher.Icons
	if i.CacheSize < 10 || i.CacheSize > 10000 {
		return fmt.Errorf("invalid icon cache_size: %d (must be 10-10000)", i.CacheSize)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "sqlite", "yaml":
		if c.Store.Path == "" {
			return fmt.Errorf("store backend %s requires a path", c.Store.Backend)
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store backend: %s (must be one of: sqlite, yaml, memory)", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateDirectory() error {
	d := c.Directory
	if len(d.Profiles) == 0 {
		return fmt.Errorf("directory needs at least one profile")
	}
	seen := make(map[string]bool, len(d.Profiles))
	for _, p := range d.Profiles {
		if p.ID == "" {
			return fmt.Errorf("directory profile with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate directory profile: %s", p.ID)
		}
		seen[p.ID] = true
	}
	if !seen[d.PrimaryProfile] {
		return fmt.Errorf("primary_profile %q is not a configured profile", d.PrimaryProfile)
	}
	if d.Watch && d.WatchDebounce.Duration < 0 {
		return fmt.Errorf("invalid watch_debounce: %v", d.WatchDebounce.Duration)
	}
	return nil
}

func ValidateConfig(path string) error {
	_, err := LoadAndValidateConfig(path)
	return err
}
