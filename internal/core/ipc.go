package core

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
	"github.com/chess10kp/vibe/internal/gate"
	"github.com/chess10kp/vibe/internal/logging"
)

const ipcTimeout = 5 * time.Second

// IPCServer accepts one command line per connection on a unix socket and
// answers with one reply line.
type IPCServer struct {
	app        *App
	socketPath string
	log        *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool
	wg       sync.WaitGroup
}

func NewIPCServer(app *App, socketPath string, log *zap.Logger) *IPCServer {
	return &IPCServer{
		app:        app,
		socketPath: socketPath,
		log:        log.Named("ipc"),
	}
}

func (s *IPCServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("IPC server already running")
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}
	s.listener = listener
	s.running = true

	s.log.Info("listening", zap.String("socket", s.socketPath))

	s.wg.Add(1)
	go s.acceptConnections(listener)
	return nil
}

func (s *IPCServer) acceptConnections(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *IPCServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	defer logging.Recover(s.log, "ipc connection")

	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		s.log.Debug("read failed", zap.Error(err))
		return
	}

	message := strings.TrimSpace(line)
	s.log.Debug("received", zap.String("message", message))

	ctx, cancel := context.WithTimeout(context.Background(), ipcTimeout)
	defer cancel()

	reply := s.HandleMessage(ctx, message)
	if _, err := fmt.Fprintln(conn, reply); err != nil {
		s.log.Debug("write failed", zap.Error(err))
	}
}

// HandleMessage runs one command line and returns the reply line.
func (s *IPCServer) HandleMessage(ctx context.Context, message string) string {
	reply, err := s.handle(ctx, message)
	if err != nil {
		return "error: " + err.Error()
	}
	return reply
}

func (s *IPCServer) handle(ctx context.Context, message string) (string, error) {
	cmd, rest, _ := strings.Cut(message, " ")
	args := strings.Fields(rest)
	app := s.app

	switch cmd {
	case "search":
		return outcomeReply(app.SetSearchText(ctx, rest)), nil
	case "clear":
		app.ClearSearch()
		return "ok", nil
	case "enter":
		return outcomeReply(app.LaunchFirstResult(ctx)), nil
	case "launch":
		key, err := keyArgs(args)
		if err != nil {
			return "", err
		}
		return outcomeReply(app.RequestLaunch(ctx, gate.Request{Key: key})), nil
	case "swipe":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: swipe left|right|up|down")
		}
		g, err := bindings.ParseGesture(args[0])
		if err != nil || g == bindings.LongPress {
			return "", fmt.Errorf("unknown swipe direction %q", args[0])
		}
		return outcomeReply(app.Swipe(ctx, g)), nil
	case "longpress":
		return outcomeReply(app.Swipe(ctx, bindings.LongPress)), nil
	case "cancel":
		if app.CancelDelay() {
			return "ok", nil
		}
		return "ok idle", nil
	case "settings":
		switch rest {
		case "show":
			app.ShowSettings()
		case "hide":
			app.HideSettings()
		default:
			return "", fmt.Errorf("usage: settings show|hide")
		}
		return "ok", nil
	case "picker":
		if rest == "hide" {
			app.HidePicker()
			return "ok", nil
		}
		target, err := bindings.ParsePickTarget(rest)
		if err != nil {
			return "", err
		}
		app.ShowPicker(target)
		return "ok", nil
	case "pick":
		key, err := keyArgs(args)
		if err != nil {
			return "", err
		}
		return "ok", app.SelectFromPicker(key)
	case "unbind":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: unbind <gesture>")
		}
		g, err := bindings.ParseGesture(args[0])
		if err != nil {
			return "", err
		}
		return "ok", app.ClearBinding(g)
	case "autolaunch":
		switch rest {
		case "on":
			return "ok", app.SetAutoLaunchEnabled(true)
		case "off":
			return "ok", app.SetAutoLaunchEnabled(false)
		}
		return "", fmt.Errorf("usage: autolaunch on|off")
	case "delay":
		seconds, err := strconv.Atoi(rest)
		if err != nil {
			return "", fmt.Errorf("usage: delay <seconds>")
		}
		stored, err := app.SetDelayDuration(seconds)
		return "ok " + strconv.Itoa(stored), err
	case "delayed":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: delayed add|remove <package> [profile]")
		}
		key, err := keyArgs(args[1:])
		if err != nil {
			return "", err
		}
		switch args[0] {
		case "add":
			return "ok", app.AddDelayed(key)
		case "remove":
			return "ok", app.RemoveDelayed(key)
		}
		return "", fmt.Errorf("usage: delayed add|remove <package> [profile]")
	case "reload":
		app.Reload()
		return "ok", nil
	case "state":
		return jsonReply(app.State().Snapshot())
	case "stats":
		limit := 10
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return "", fmt.Errorf("usage: stats [limit]")
			}
			limit = n
		}
		return jsonReply(app.Stats(limit))
	case "home-settings":
		return "ok", app.OpenDefaultLauncherSettings(ctx)
	case "":
		return "", fmt.Errorf("empty command")
	}
	return "", fmt.Errorf("unknown command %q", cmd)
}

func keyArgs(args []string) (apps.Key, error) {
	switch len(args) {
	case 1:
		return apps.Key{Package: args[0]}, nil
	case 2:
		return apps.Key{Package: args[0], Profile: apps.ProfileID(args[1])}, nil
	}
	return apps.Key{}, fmt.Errorf("expected <package> [profile]")
}

func outcomeReply(out gate.Outcome) string {
	return "ok " + out.Status.String()
}

func jsonReply(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *IPCServer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	err := listener.Close()
	s.wg.Wait()

	if _, statErr := os.Stat(s.socketPath); statErr == nil {
		os.Remove(s.socketPath)
	}

	s.log.Info("stopped")
	return err
}
