package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/chess10kp/vibe/internal/config"
	"github.com/chess10kp/vibe/internal/logging"
	"github.com/chess10kp/vibe/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the launcher in the terminal",
	Long: `Run the launcher with a terminal front end. Type to search, shift+arrows
and ctrl+p trigger the gesture bindings, ctrl+s opens settings, esc cancels a
pending launch. The IPC socket is served as well.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		return err
	}

	// the terminal belongs to the UI
	cfg.Logging.OutputPaths = []string{filepath.Join(cfg.DataDir, "vibe.log")}
	log, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := newRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.start(ctx); err != nil {
		return err
	}

	_, err = tea.NewProgram(tui.New(rt.app), tea.WithAltScreen()).Run()
	return err
}
