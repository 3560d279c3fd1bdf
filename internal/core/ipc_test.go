package core

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/bindings"
	"github.com/chess10kp/vibe/internal/config"
	"github.com/chess10kp/vibe/internal/session"
	"github.com/chess10kp/vibe/internal/settings"
	"github.com/chess10kp/vibe/internal/usage"
)

func TestIPC_HandleMessage(t *testing.T) {
	cfg := testConfig()
	cfg.Launcher.Delay.TickInterval = config.Duration{Duration: time.Hour}
	f := newFixture(t, cfg, testDirectory(), settings.NewMemory())
	require.NoError(t, <-f.app.Reload())
	s := NewIPCServer(f.app, "", zap.NewNop())
	ctx := context.Background()

	testCases := []struct {
		message string
		want    string
	}{
		{"search Cal", "ok ignored"},
		{"clear", "ok"},
		{"launch com.x.camera", "ok dispatched"},
		{"launch com.x.gone", "ok dropped"},
		{"swipe left", "ok ignored"},
		{"swipe longpress", `error: unknown swipe direction "longpress"`},
		{"swipe", "error: usage: swipe left|right|up|down"},
		{"picker right", "ok"},
		{"pick com.y.app work", "ok"},
		{"swipe right", "ok dispatched"},
		{"picker sideways", `error: unknown picker target "sideways"`},
		{"pick com.x.cal", "error: app picker is not open"},
		{"unbind right", "ok"},
		{"swipe right", "ok ignored"},
		{"delay 1", "ok 5"},
		{"delay soon", "error: usage: delay <seconds>"},
		{"delayed add com.x.calc", "ok"},
		{"launch com.x.calc", "ok deferred"},
		{"cancel", "ok"},
		{"cancel", "ok idle"},
		{"delayed remove com.x.calc", "ok"},
		{"autolaunch off", "ok"},
		{"autolaunch maybe", "error: usage: autolaunch on|off"},
		{"settings show", "ok"},
		{"settings hide", "ok"},
		{"home-settings", "ok"},
		{"", "error: empty command"},
		{"dance", `error: unknown command "dance"`},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, s.HandleMessage(ctx, tc.message), tc.message)
	}

	snap := f.app.State().Snapshot()
	assert.False(t, snap.AutoLaunchEnabled)
	assert.Equal(t, 5, snap.DelayDurationSeconds)
	assert.Empty(t, snap.DelayedApps)
	assert.Nil(t, snap.Bindings[bindings.RightSwipe])
}

func TestIPC_StateAndStatsAreJSON(t *testing.T) {
	f := newLoadedFixture(t)
	s := NewIPCServer(f.app, "", zap.NewNop())
	ctx := context.Background()

	require.Equal(t, "ok dispatched", s.HandleMessage(ctx, "launch com.x.camera"))

	var state session.State
	require.NoError(t, json.Unmarshal([]byte(s.HandleMessage(ctx, "state")), &state))
	assert.Len(t, state.AllApps, 5)

	var stats []usage.Match
	require.NoError(t, json.Unmarshal([]byte(s.HandleMessage(ctx, "stats 1")), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "com.x.camera@personal", stats[0].Key)
}

func TestIPC_Socket(t *testing.T) {
	f := newLoadedFixture(t)

	dir, err := os.MkdirTemp("", "vibe")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "sock")

	s := NewIPCServer(f.app, socket, zap.NewNop())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	send := func(message string) string {
		conn, err := net.Dial("unix", socket)
		require.NoError(t, err)
		defer conn.Close()
		_, err = conn.Write([]byte(message + "\n"))
		require.NoError(t, err)
		reply, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		return strings.TrimSpace(reply)
	}

	assert.Equal(t, "ok ignored", send("search Cal"))
	assert.Equal(t, "Cal", f.app.State().Snapshot().SearchText)
	assert.Equal(t, "ok", send("clear"))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	_, err = os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
}
