// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hearth-home/hearth/channel"
	"github.com/hearth-home/hearth/console"
	"github.com/hearth-home/hearth/lib/secret"
)

// EventMsg delivers a channel event through the bubbletea message
// loop. The runner forwards the console's OnEvent callback here via
// Program.Send.
type EventMsg struct {
	Event channel.Event
}

// SignalMsg delivers a console signal through the message loop.
// Signals carry no data the model acts on; they trigger a re-read of
// console state and a status-bar notice.
type SignalMsg struct {
	Kind   string
	Detail string
}

// authResultMsg reports a completed credential submission.
type authResultMsg struct {
	granted bool
	err     error
}

// noticeFadeMsg clears the status-bar notice after a delay.
type noticeFadeMsg struct{}

const noticeFadeDelay = 4 * time.Second

// Model is the console's bubbletea shell: a tab bar over the
// accessible views, a body showing the latest event per subscribed
// topic, a status bar, and a fallback banner when the coordination
// core has forced the safe view.
//
// The model holds no coordination state of its own — every render
// re-reads the console, so the shell can never disagree with the
// core about what is active.
type Model struct {
	console *console.Console
	catalog *console.Catalog
	theme   Theme
	keys    keyMap

	width  int
	height int

	// latest keeps the most recent event per topic, in first-seen
	// order, for the body panes.
	latest map[console.Topic]channel.Event
	order  []console.Topic

	credential textinput.Model
	prompting  bool

	notice   string
	quitting bool
}

// New creates the shell over a started console.
func New(con *console.Console, catalog *console.Catalog) Model {
	input := textinput.New()
	input.Prompt = "admin credential: "
	input.EchoMode = textinput.EchoPassword
	input.CharLimit = 256

	return Model{
		console:    con,
		catalog:    catalog,
		theme:      DefaultTheme(),
		keys:       defaultKeyMap(),
		latest:     make(map[console.Topic]channel.Event),
		credential: input,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EventMsg:
		topic := console.Topic(msg.Event.Topic)
		if _, seen := m.latest[topic]; !seen {
			m.order = append(m.order, topic)
		}
		m.latest[topic] = msg.Event
		return m, nil

	case SignalMsg:
		return m.handleSignal(msg), noticeFade()

	case authResultMsg:
		m.prompting = false
		m.credential.Blur()
		switch {
		case msg.err != nil:
			m.notice = fmt.Sprintf("authentication error: %v", msg.err)
		case !msg.granted:
			m.notice = "credential rejected"
		default:
			m.notice = "privileged session granted"
		}
		return m, noticeFade()

	case noticeFadeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleSignal(msg SignalMsg) Model {
	switch msg.Kind {
	case "fallback_activated":
		m.notice = "degraded mode: " + msg.Detail
	case "fallback_recovery_attempted":
		m.notice = "recovering..."
	case "fallback_recovery_succeeded":
		m.notice = "recovered"
	case "fallback_recovery_failed":
		m.notice = "recovery failed; re-enter admin mode to retry"
	case "privilege_change_completed":
		m.notice = "admin mode " + msg.Detail
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting {
		switch msg.String() {
		case "enter":
			value := m.credential.Value()
			m.credential.SetValue("")
			return m, m.submitCredential(value)
		case "esc":
			m.prompting = false
			m.credential.SetValue("")
			m.credential.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.credential, cmd = m.credential.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextView):
		m.cycleView(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevView):
		m.cycleView(-1)
		return m, nil

	case key.Matches(msg, m.keys.Admin):
		if m.console.Privileged() {
			m.console.RequestPrivilegeChange(false)
			return m, nil
		}
		m.prompting = true
		m.credential.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

// cycleView moves the selection through the accessible views in
// display order. The console decides whether the change takes
// effect; during fallback it records the selection but keeps the
// safe view resolved.
func (m Model) cycleView(step int) {
	views := m.catalog.Accessible(m.console.Privileged())
	if len(views) == 0 {
		return
	}
	current := m.console.ActiveView()
	index := 0
	for i, view := range views {
		if view.ID == current {
			index = i
			break
		}
	}
	next := views[(index+step+len(views))%len(views)]
	// Unknown views cannot come out of the catalog.
	_ = m.console.RequestViewChange(next.ID)
}

// submitCredential presents the credential off the UI loop. Elevation
// is requested only after the channel grants the session, so a typo
// never flips the privilege flag.
func (m Model) submitCredential(value string) tea.Cmd {
	con := m.console
	return func() tea.Msg {
		buffer, err := secret.NewFromBytes([]byte(value))
		if err != nil {
			return authResultMsg{err: err}
		}
		defer buffer.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		granted, err := con.SubmitCredential(ctx, buffer)
		if err != nil {
			return authResultMsg{err: err}
		}
		if granted {
			con.RequestPrivilegeChange(true)
		}
		return authResultMsg{granted: granted}
	}
}

func noticeFade() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{}
	})
}

// View renders the shell. A panic anywhere in the render path is
// routed to the coordination core as a render fault and replaced
// with the minimal safe rendering — never swallowed, never fatal.
func (m Model) View() (out string) {
	defer func() {
		if cause := recover(); cause != nil {
			m.console.ReportRenderFault(cause)
			out = m.renderSafe()
		}
	}()
	if m.quitting {
		return ""
	}
	return m.render()
}

func (m Model) render() string {
	var b strings.Builder

	if m.console.FallbackActive() {
		b.WriteString(m.renderBanner())
		b.WriteString("\n")
	}
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	if m.prompting {
		b.WriteString(m.credential.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderSafe is the fallback rendering used when render itself
// faulted: no styling, no event formatting, just enough to stay
// usable.
func (m Model) renderSafe() string {
	return fmt.Sprintf("hearth (safe mode)\nview: %s\nreason: %s\npress q to quit\n",
		m.console.ActiveView(), m.console.FallbackReason())
}

func (m Model) renderBanner() string {
	reason := m.console.FallbackReason()
	text := " DEGRADED MODE — " + reason + " "
	if m.console.FallbackRecovering() {
		text += "(recovering) "
	}
	return lipgloss.NewStyle().
		Foreground(m.theme.FallbackForeground).
		Background(m.theme.FallbackBackground).
		Bold(true).
		Render(text)
}

func (m Model) renderTabs() string {
	active := m.console.ActiveView()
	privileged := m.console.Privileged()

	activeStyle := lipgloss.NewStyle().
		Foreground(m.theme.TabActiveForeground).
		Background(m.theme.TabActiveBackground).
		Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(m.theme.TabInactiveForeground).
		Padding(0, 1)
	adminStyle := inactiveStyle.
		Foreground(m.theme.TabAdminForeground)

	var tabs []string
	for _, view := range m.catalog.Accessible(privileged) {
		switch {
		case view.ID == active:
			tabs = append(tabs, activeStyle.Render(view.Title))
		case view.AdminOnly:
			tabs = append(tabs, adminStyle.Render(view.Title))
		default:
			tabs = append(tabs, inactiveStyle.Render(view.Title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderBody lists the latest event per topic currently subscribed,
// most specific first: the active view's tab topics, then everything
// else.
func (m Model) renderBody() string {
	subscribed := make(map[console.Topic]console.SubscriptionInfo)
	for _, info := range m.console.Subscriptions() {
		subscribed[info.Topic] = info
	}

	titleStyle := lipgloss.NewStyle().Foreground(m.theme.NormalText).Bold(true)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	var b strings.Builder
	view, _ := m.catalog.View(m.console.ActiveView())
	b.WriteString(titleStyle.Render(view.Title))
	b.WriteString("\n")

	if len(subscribed) == 0 {
		b.WriteString(faint.Render("no active subscriptions"))
		return b.String()
	}

	for _, topic := range m.order {
		info, ok := subscribed[topic]
		if !ok {
			continue
		}
		event := m.latest[topic]
		b.WriteString(fmt.Sprintf("  %-28s %s seq=%d %s\n",
			topic,
			faint.Render(info.Category.String()),
			event.Sequence,
			faint.Render(event.At.Format("15:04:05")),
		))
	}
	for _, info := range m.console.Subscriptions() {
		if _, seen := m.latest[info.Topic]; seen {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-28s %s %s\n",
			info.Topic,
			faint.Render(info.Category.String()),
			faint.Render("waiting"),
		))
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	status := m.console.ChannelStatus()
	statusStyle := lipgloss.NewStyle().Foreground(m.theme.StatusConnected)
	if status != channel.StatusConnected {
		statusStyle = statusStyle.Foreground(m.theme.StatusDisconnected)
	}

	parts := []string{statusStyle.Render(status.String())}
	if m.console.Privileged() {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(m.theme.PrivilegedAccent).
			Render("admin"))
	}
	parts = append(parts, fmt.Sprintf("%d subscriptions", len(m.console.Subscriptions())))
	if m.notice != "" {
		parts = append(parts, m.notice)
	}

	help := lipgloss.NewStyle().Foreground(m.theme.HelpText).
		Render("tab: views · a: admin · q: quit")
	return strings.Join(parts, "  ") + "  " + help
}
