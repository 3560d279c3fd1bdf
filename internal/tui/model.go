// Package tui is a terminal front end for a launcher session. It renders
// session snapshots and turns key presses into launcher commands.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
	"github.com/chess10kp/vibe/internal/gate"
	"github.com/chess10kp/vibe/internal/session"
)

// Commands is the subset of the launcher core the UI drives.
type Commands interface {
	State() session.Reader
	SetSearchText(ctx context.Context, text string) gate.Outcome
	ClearSearch()
	LaunchFirstResult(ctx context.Context) gate.Outcome
	RequestLaunch(ctx context.Context, req gate.Request) gate.Outcome
	Swipe(ctx context.Context, g bindings.Gesture) gate.Outcome
	CancelDelay() bool
	ShowSettings()
	HideSettings()
	ShowPicker(target bindings.PickTarget)
	HidePicker()
	SelectFromPicker(key apps.Key) error
	ClearBinding(g bindings.Gesture) error
	SetAutoLaunchEnabled(enabled bool) error
	SetDelayDuration(seconds int) (int, error)
	RemoveDelayed(key apps.Key) error
	OpenDefaultLauncherSettings(ctx context.Context) error
}

type stateMsg session.State

type closedMsg struct{}

type Model struct {
	cmds   Commands
	states <-chan session.State
	stop   func()

	state  session.State
	cursor int
	status string
	width  int
	height int
}

func New(cmds Commands) Model {
	states, stop := cmds.State().Subscribe()
	return Model{
		cmds:   cmds,
		states: states,
		stop:   stop,
		state:  cmds.State().Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForState()
}

func (m Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		s, ok := <-states
		if !ok {
			return closedMsg{}
		}
		return stateMsg(s)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = session.State(msg)
		m.cursor = min(m.cursor, max(len(m.visible())-1, 0))
		return m, m.waitForState()
	case closedMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// visible is the list the cursor moves over in the current overlay.
func (m Model) visible() []apps.Entry {
	switch {
	case m.state.ShowAppPicker:
		return m.state.AllApps
	case m.state.ShowSettings:
		return m.state.DelayedApps
	case len(m.state.FilteredApps) == 0:
		return m.state.Suggestions
	}
	return m.state.FilteredApps
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg.Type {
	case tea.KeyCtrlC:
		m.stop()
		return m, tea.Quit
	case tea.KeyUp:
		m.cursor = max(m.cursor-1, 0)
		return m, nil
	case tea.KeyDown:
		m.cursor = min(m.cursor+1, max(len(m.visible())-1, 0))
		return m, nil
	case tea.KeyEsc:
		m.escape()
		return m, nil
	case tea.KeyCtrlS:
		if m.state.ShowSettings {
			m.cmds.HideSettings()
		} else {
			m.cmds.ShowSettings()
		}
		m.cursor = 0
		return m, nil
	case tea.KeyShiftLeft:
		m.report(m.cmds.Swipe(ctx, bindings.LeftSwipe))
		return m, nil
	case tea.KeyShiftRight:
		m.report(m.cmds.Swipe(ctx, bindings.RightSwipe))
		return m, nil
	case tea.KeyShiftUp:
		m.report(m.cmds.Swipe(ctx, bindings.UpSwipe))
		return m, nil
	case tea.KeyShiftDown:
		m.report(m.cmds.Swipe(ctx, bindings.DownSwipe))
		return m, nil
	case tea.KeyCtrlP:
		m.report(m.cmds.Swipe(ctx, bindings.LongPress))
		return m, nil
	}

	switch {
	case m.state.ShowAppPicker:
		m.pickerKey(msg)
	case m.state.ShowSettings:
		m.settingsKey(ctx, msg)
	default:
		m.searchKey(ctx, msg)
	}
	return m, nil
}

// escape cancels the countdown first, then closes overlays, then clears the
// search.
func (m *Model) escape() {
	switch {
	case m.state.IsDelayingLaunch:
		m.cmds.CancelDelay()
		m.status = "launch canceled"
	case m.state.ShowAppPicker:
		m.cmds.HidePicker()
	case m.state.ShowSettings:
		m.cmds.HideSettings()
	default:
		m.cmds.ClearSearch()
	}
	m.cursor = 0
}

func (m *Model) searchKey(ctx context.Context, msg tea.KeyMsg) {
	// the last delivered state may lag behind fast typing
	text := m.cmds.State().Snapshot().SearchText
	switch msg.Type {
	case tea.KeyRunes:
		text += string(msg.Runes)
	case tea.KeySpace:
		text += " "
	case tea.KeyBackspace:
		if text == "" {
			return
		}
		r := []rune(text)
		text = string(r[:len(r)-1])
	case tea.KeyEnter:
		list := m.visible()
		if m.cursor > 0 && m.cursor < len(list) {
			m.report(m.cmds.RequestLaunch(ctx, gate.Request{Key: list[m.cursor].Key(), ClearSearch: true}))
		} else {
			m.report(m.cmds.LaunchFirstResult(ctx))
		}
		m.cursor = 0
		return
	default:
		return
	}
	m.cursor = 0
	m.report(m.cmds.SetSearchText(ctx, text))
}

func (m *Model) settingsKey(ctx context.Context, msg tea.KeyMsg) {
	if msg.Type == tea.KeyDelete {
		if list := m.visible(); m.cursor < len(list) {
			m.setStatus(m.cmds.RemoveDelayed(list[m.cursor].Key()))
		}
		return
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return
	}

	switch r := msg.Runes[0]; r {
	case '1', '2', '3', '4', '5':
		m.cmds.ShowPicker(pickTargets[r-'1'])
		m.cursor = 0
	case '!', '@', '#', '$', '%':
		g := bindings.Gesture(strings.IndexRune("!@#$%", r))
		m.setStatus(m.cmds.ClearBinding(g))
	case 'd':
		m.cmds.ShowPicker(bindings.PickDelayed)
		m.cursor = 0
	case 'a':
		m.setStatus(m.cmds.SetAutoLaunchEnabled(!m.state.AutoLaunchEnabled))
	case '+', '-':
		step := 5
		if r == '-' {
			step = -5
		}
		stored, err := m.cmds.SetDelayDuration(m.state.DelayDurationSeconds + step)
		m.setStatus(err)
		if err == nil {
			m.status = fmt.Sprintf("delay %ds", stored)
		}
	case 'h':
		m.setStatus(m.cmds.OpenDefaultLauncherSettings(ctx))
	}
}

var pickTargets = [bindings.GestureCount]bindings.PickTarget{
	bindings.PickLeft, bindings.PickRight, bindings.PickUp, bindings.PickDown, bindings.PickLongPress,
}

func (m *Model) pickerKey(msg tea.KeyMsg) {
	if msg.Type != tea.KeyEnter {
		return
	}
	list := m.visible()
	if m.cursor >= len(list) {
		return
	}
	m.setStatus(m.cmds.SelectFromPicker(list[m.cursor].Key()))
	m.cursor = 0
}

func (m *Model) report(out gate.Outcome) {
	switch out.Status {
	case gate.Dispatched:
		m.status = "launched " + out.Entry.Name
	case gate.Deferred:
		m.status = "waiting to launch " + out.Entry.Name
	case gate.Dropped:
		m.status = "could not launch " + out.Entry.Package
	}
}

func (m *Model) setStatus(err error) {
	if err != nil {
		m.status = "error: " + err.Error()
	}
}
