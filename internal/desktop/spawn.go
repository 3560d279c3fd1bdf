package desktop

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/joshuarubin/go-sway"
	"go.uber.org/zap"
)

// Spawner starts a detached process.
type Spawner interface {
	Spawn(ctx context.Context, argv []string) error
}

// ExecSpawner starts the process in its own session so it outlives the
// launcher.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// SwaySpawner asks the compositor to exec the command, falling back to
// Fallback when no sway IPC socket is reachable.
type SwaySpawner struct {
	Fallback Spawner
	Log      *zap.Logger
}

func (s SwaySpawner) Spawn(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	// the client holds its connection open until ctx is done
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := sway.New(ctx)
	if err != nil {
		s.Log.Debug("sway unavailable, using fallback", zap.Error(err))
		return s.fallback(ctx, argv)
	}

	replies, err := client.RunCommand(ctx, "exec "+shellJoin(argv))
	if err != nil {
		return fmt.Errorf("sway exec: %w", err)
	}
	for _, r := range replies {
		if !r.Success {
			return fmt.Errorf("sway exec: %s", r.Error)
		}
	}
	return nil
}

func (s SwaySpawner) fallback(ctx context.Context, argv []string) error {
	if s.Fallback == nil {
		return ExecSpawner{}.Spawn(ctx, argv)
	}
	return s.Fallback.Spawn(ctx, argv)
}

// shellJoin single-quotes each argument for sway's sh -c.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
