package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/bindings"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	countdownBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).BorderForeground(lipgloss.Color("9"))
	autoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

const maxRows = 15

func (m Model) View() string {
	var b strings.Builder

	switch {
	case m.state.ShowAppPicker:
		m.viewPicker(&b)
	case m.state.ShowSettings:
		m.viewSettings(&b)
	default:
		m.viewSearch(&b)
	}

	if m.state.IsDelayingLaunch && m.state.PendingLaunchApp != nil {
		b.WriteString("\n")
		b.WriteString(countdownBox.Render(fmt.Sprintf("Opening %s in %ds\nesc to cancel",
			m.state.PendingLaunchApp.Name, m.state.DelayTimerSeconds)))
		b.WriteString("\n")
	}
	if m.state.Reloading {
		b.WriteString(dimStyle.Render("loading apps…") + "\n")
	}
	if m.status != "" {
		b.WriteString(dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m Model) viewSearch(b *strings.Builder) {
	b.WriteString(titleStyle.Render("> ") + m.state.SearchText + "▏\n\n")

	list := m.state.FilteredApps
	if len(list) == 0 && len(m.state.Suggestions) > 0 {
		b.WriteString(dimStyle.Render("no matches, did you mean:") + "\n")
		list = m.state.Suggestions
	}
	m.viewList(b, list)

	if m.state.AutoLaunchApp != nil {
		b.WriteString(autoStyle.Render("↵ auto-launch: "+m.state.AutoLaunchApp.Name) + "\n")
	}
	b.WriteString(dimStyle.Render("shift+arrows swipe · ctrl+p long press · ctrl+s settings · esc clear") + "\n")
}

func (m Model) viewList(b *strings.Builder, list []apps.Entry) {
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	for i := start; i < len(list) && i < start+maxRows; i++ {
		line := entryLabel(list[i])
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}
	if len(list) > start+maxRows {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(list)-start-maxRows)) + "\n")
	}
}

func entryLabel(e apps.Entry) string {
	if e.Secondary {
		return e.Name + " " + badgeStyle.Render("["+string(e.Profile)+"]")
	}
	return e.Name
}

func (m Model) viewSettings(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Settings") + "\n\n")

	for i, g := range bindings.Gestures() {
		target := dimStyle.Render("Not set")
		if e, ok := m.state.Binding(g); ok {
			target = entryLabel(e)
		}
		fmt.Fprintf(b, "  %d  %-10s %s\n", i+1, g.String(), target)
	}

	auto := "off"
	if m.state.AutoLaunchEnabled {
		auto = "on"
	}
	fmt.Fprintf(b, "\n  a  auto-launch   %s\n", auto)
	fmt.Fprintf(b, "  +- delay        %ds\n", m.state.DelayDurationSeconds)

	b.WriteString("\n  d  delayed apps\n")
	if len(m.state.DelayedApps) == 0 {
		b.WriteString("     " + dimStyle.Render("none") + "\n")
	}
	for i, e := range m.state.DelayedApps {
		line := entryLabel(e)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString("     " + line + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("1-5 bind · shift+1-5 unbind · del remove delayed · h home settings · esc back") + "\n")
}

func (m Model) viewPicker(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Choose an app for "+string(m.state.PickingTarget)) + "\n\n")
	m.viewList(b, m.state.AllApps)
	b.WriteString(dimStyle.Render("↵ select · esc cancel") + "\n")
}
