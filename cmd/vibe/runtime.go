package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/config"
	"github.com/chess10kp/vibe/internal/core"
	"github.com/chess10kp/vibe/internal/desktop"
	"github.com/chess10kp/vibe/internal/settings"
	"github.com/chess10kp/vibe/internal/usage"
)

// runtime is a fully wired launcher session.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	app      *core.App
	ipc      *core.IPCServer
	watcher  *desktop.Watcher
	settings settings.Store
}

func newRuntime(cfg *config.Config, log *zap.Logger) (*runtime, error) {
	store, err := settings.Open(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}

	tracker, err := usage.NewTracker(cfg.DataDir, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	icons, err := desktop.NewIconResolver(cfg.Launcher.Icons.CacheSize, cfg.Launcher.Icons.Extensions, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	spawner := desktop.SwaySpawner{Fallback: desktop.ExecSpawner{}, Log: log.Named("spawn")}
	dir := desktop.NewDirectory(cfg, icons, spawner, log)

	var homeSettings func(context.Context) error
	if argv := cfg.Launcher.Behavior.HomeSettingsCommand; len(argv) > 0 {
		homeSettings = func(ctx context.Context) error {
			return spawner.Spawn(ctx, argv)
		}
	}

	app, err := core.NewApp(core.Deps{
		Config:       cfg,
		Directory:    dir,
		Settings:     store,
		Usage:        tracker,
		Log:          log,
		HomeSettings: homeSettings,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		app:      app,
		ipc:      core.NewIPCServer(app, cfg.SocketPath, log),
		settings: store,
	}

	if cfg.Directory.Watch {
		rt.watcher, err = desktop.NewWatcher(dir.ApplicationDirs(), cfg.Directory.WatchDebounce.Duration, func() {
			log.Info("application directories changed, reloading")
			app.Reload()
		}, log)
		if err != nil {
			log.Warn("directory watcher unavailable", zap.Error(err))
		}
	}
	return rt, nil
}

func (rt *runtime) start(ctx context.Context) error {
	rt.app.Reload()
	if rt.watcher != nil {
		if err := rt.watcher.Start(ctx); err != nil {
			rt.log.Warn("failed to start watcher", zap.Error(err))
		}
	}
	return rt.ipc.Start()
}

func (rt *runtime) close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if err := rt.ipc.Stop(); err != nil {
		rt.log.Warn("failed to stop IPC server", zap.Error(err))
	}
	rt.app.Close()
	if err := rt.settings.Close(); err != nil {
		rt.log.Warn("failed to close settings", zap.Error(err))
	}
}

// ensureSingleInstance stops a previous instance recorded in the pid file
// and records this one.
func ensureSingleInstance(pidFile string, log *zap.Logger) error {
	if data, err := os.ReadFile(pidFile); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					log.Info("stopping previous instance", zap.Int("pid", pid))
					_ = process.Signal(syscall.SIGTERM)
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}
