package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/config"
	"github.com/chess10kp/vibe/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the launcher daemon",
	Long: `Run the launcher headless. Commands arrive over the IPC socket; see
vibe-client for the command list.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	defer logging.Recover(log, "serve")

	if err := ensureSingleInstance(cfg.PidFile, log); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	defer os.Remove(cfg.PidFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.start(ctx); err != nil {
		return err
	}

	log.Info("vibe started", zap.String("socket", cfg.SocketPath))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
