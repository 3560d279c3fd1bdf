package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
	"github.com/chess10kp/vibe/internal/gate"
	"github.com/chess10kp/vibe/internal/session"
)

// fakeCommands records calls and applies the overlay ones to the state so
// the model sees them.
type fakeCommands struct {
	state *session.Container
	calls []string
}

func newFake(s session.State) *fakeCommands {
	return &fakeCommands{state: session.NewContainer(s)}
}

func (f *fakeCommands) record(format string, args ...any) {
	f.calls = append(f.calls, strings.TrimSpace(strings.Join(append([]string{format}, toStrings(args)...), " ")))
}

func toStrings(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			out[i] = v
		case interface{ String() string }:
			out[i] = v.String()
		default:
			out[i] = "?"
		}
	}
	return out
}

func (f *fakeCommands) State() session.Reader { return f.state }

func (f *fakeCommands) SetSearchText(ctx context.Context, text string) gate.Outcome {
	f.record("search", text)
	f.state.Update(func(s *session.State) { s.SearchText = text })
	return gate.Outcome{}
}

func (f *fakeCommands) ClearSearch() { f.record("clear") }

func (f *fakeCommands) LaunchFirstResult(ctx context.Context) gate.Outcome {
	f.record("enter")
	return gate.Outcome{Status: gate.Dispatched, Entry: apps.Entry{Name: "Camera"}}
}

func (f *fakeCommands) RequestLaunch(ctx context.Context, req gate.Request) gate.Outcome {
	f.record("launch", req.Key)
	return gate.Outcome{Status: gate.Deferred, Entry: apps.Entry{Name: req.Key.Package}}
}

func (f *fakeCommands) Swipe(ctx context.Context, g bindings.Gesture) gate.Outcome {
	f.record("swipe", g)
	return gate.Outcome{}
}

func (f *fakeCommands) CancelDelay() bool {
	f.record("cancel")
	return true
}

func (f *fakeCommands) ShowSettings() {
	f.record("settings show")
	f.state.Update(func(s *session.State) { s.ShowSettings = true })
}

func (f *fakeCommands) HideSettings() { f.record("settings hide") }

func (f *fakeCommands) ShowPicker(t bindings.PickTarget) { f.record("picker", string(t)) }

func (f *fakeCommands) HidePicker() { f.record("picker hide") }

func (f *fakeCommands) SelectFromPicker(k apps.Key) error {
	f.record("pick", k)
	return nil
}

func (f *fakeCommands) ClearBinding(g bindings.Gesture) error {
	f.record("unbind", g)
	return nil
}

func (f *fakeCommands) SetAutoLaunchEnabled(enabled bool) error {
	if enabled {
		f.record("autolaunch on")
	} else {
		f.record("autolaunch off")
	}
	return nil
}

func (f *fakeCommands) SetDelayDuration(seconds int) (int, error) {
	f.record("delay")
	return seconds, nil
}

func (f *fakeCommands) RemoveDelayed(k apps.Key) error {
	f.record("delayed remove", k)
	return nil
}

func (f *fakeCommands) OpenDefaultLauncherSettings(ctx context.Context) error {
	f.record("home-settings")
	return nil
}

var (
	camera = apps.Entry{Package: "com.x.camera", Name: "Camera", Profile: "personal"}
	chat   = apps.Entry{Package: "com.y.app", Name: "Chat", Profile: "work", Secondary: true}
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and then the resulting state snapshot to the model.
func press(t *testing.T, m Model, f *fakeCommands, msg tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	next, _ = next.Update(stateMsg(f.state.Snapshot()))
	return next.(Model)
}

func TestModel_TypingSearches(t *testing.T) {
	f := newFake(session.State{FilteredApps: []apps.Entry{camera, chat}})
	m := New(f)
	defer m.stop()

	m = press(t, m, f, keyRunes("c"))
	m = press(t, m, f, keyRunes("a"))
	m = press(t, m, f, tea.KeyMsg{Type: tea.KeySpace})
	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyBackspace})

	assert.Equal(t, []string{"search c", "search ca", "search ca", "search ca"}, f.calls)
	assert.Equal(t, "ca", m.state.SearchText)
}

func TestModel_EnterLaunchesCursorOrFirst(t *testing.T) {
	f := newFake(session.State{SearchText: "c", FilteredApps: []apps.Entry{camera, chat}})
	m := New(f)
	defer m.stop()

	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []string{"enter", "launch com.y.app@work"}, f.calls)
	assert.Equal(t, "waiting to launch com.y.app", m.status)
}

func TestModel_GestureKeys(t *testing.T) {
	f := newFake(session.State{})
	m := New(f)
	defer m.stop()

	for _, k := range []tea.KeyType{tea.KeyShiftLeft, tea.KeyShiftRight, tea.KeyShiftUp, tea.KeyShiftDown, tea.KeyCtrlP} {
		m = press(t, m, f, tea.KeyMsg{Type: k})
	}
	assert.Equal(t, []string{"swipe left", "swipe right", "swipe up", "swipe down", "swipe longpress"}, f.calls)
}

func TestModel_EscapeOrder(t *testing.T) {
	f := newFake(session.State{IsDelayingLaunch: true, ShowSettings: true, ShowAppPicker: true})
	m := New(f)
	defer m.stop()

	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyEsc})
	m.state.IsDelayingLaunch = false
	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, []string{"cancel", "picker hide"}, f.calls)
}

func TestModel_SettingsKeys(t *testing.T) {
	f := newFake(session.State{DelayDurationSeconds: 60, AutoLaunchEnabled: true, DelayedApps: []apps.Entry{chat}})
	m := New(f)
	defer m.stop()

	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, m.state.ShowSettings)

	for _, k := range []string{"1", "5", "d", "a", "+", "@", "h"} {
		m = press(t, m, f, keyRunes(k))
	}
	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyDelete})

	assert.Equal(t, []string{
		"settings show",
		"picker left",
		"picker longpress",
		"picker delayed",
		"autolaunch off",
		"delay",
		"unbind right",
		"home-settings",
		"delayed remove com.y.app@work",
	}, f.calls)
	assert.Equal(t, "delay 65s", m.status)
}

func TestModel_PickerEnterSelects(t *testing.T) {
	f := newFake(session.State{ShowAppPicker: true, PickingTarget: bindings.PickUp, AllApps: []apps.Entry{camera, chat}})
	m := New(f)
	defer m.stop()

	m = press(t, m, f, tea.KeyMsg{Type: tea.KeyDown})
	press(t, m, f, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"pick com.y.app@work"}, f.calls)
}

func TestModel_View(t *testing.T) {
	pending := camera
	f := newFake(session.State{
		SearchText:        "ca",
		FilteredApps:      []apps.Entry{camera},
		AutoLaunchApp:     &pending,
		IsDelayingLaunch:  true,
		DelayTimerSeconds: 7,
		PendingLaunchApp:  &pending,
	})
	m := New(f)
	defer m.stop()

	view := m.View()
	assert.Contains(t, view, "Camera")
	assert.Contains(t, view, "auto-launch: Camera")
	assert.Contains(t, view, "Opening Camera in 7s")

	m.state = session.State{ShowSettings: true, DelayDurationSeconds: 30}
	m.state.Bindings[bindings.LeftSwipe] = &chat
	view = m.View()
	assert.Contains(t, view, "Not set")
	assert.Contains(t, view, "Chat")
	assert.Contains(t, view, "[work]")
	assert.Contains(t, view, "30s")
}
