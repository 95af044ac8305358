package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotfill/internal/models"
)

// Backend is the daemon as seen by the popup. Implemented by bridge.Client.
type Backend interface {
	Start(ctx context.Context) error
	Status(ctx context.Context) (models.SessionStatus, error)
	Subscribe(ctx context.Context) (<-chan models.Notification, error)
}

// Model represents the popup state.
type Model struct {
	ctx     context.Context
	backend Backend
	events  <-chan models.Notification

	status    models.SessionStatus
	busy      bool
	connected bool
	lastText  string
	lastIsErr bool
	err       error

	history list.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	width   int
	height  int
	now     func() time.Time
}

// NewModel creates a new popup model talking to backend.
func NewModel(ctx context.Context, backend Backend) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ok

	return &Model{
		ctx:     ctx,
		backend: backend,
		history: newHistory(),
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
		now:     time.Now,
	}
}

// Init fetches the session status and opens the notification stream.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), m.subscribe(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(max(msg.Width-6, 20), max(msg.Height-14, 4))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatusFetched:
		data := msg.data.(statusFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.status = data.status
		m.busy = data.status.Busy
		if m.lastText == "" && data.status.LastStatus != "" {
			m.lastText = data.status.LastStatus
		}
		return m, nil

	case MsgSubscribed:
		data := msg.data.(subscribed)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.events = data.events
		m.connected = true
		return m, m.waitForNotification()

	case MsgNotification:
		n := msg.data.(models.Notification)
		if n.Kind == models.NotificationBusy {
			wasBusy := m.busy
			m.busy = n.Busy
			m.status.Busy = n.Busy
			if wasBusy && !n.Busy {
				return m, tea.Batch(m.waitForNotification(), m.fetchStatus())
			}
			return m, m.waitForNotification()
		}
		cmd := m.pushStatus(n.Status)
		return m, tea.Batch(cmd, m.waitForNotification())

	case MsgStreamClosed:
		m.connected = false
		m.events = nil
		m.busy = false
		m.err = fmt.Errorf("daemon connection closed")
		return m, nil

	case MsgCommandSent:
		if err, ok := msg.data.(error); ok && err != nil {
			m.lastText = err.Error()
			m.lastIsErr = true
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchStatus()
	case key.Matches(msg, m.keys.start):
		if !m.CanStart() {
			return m, nil
		}
		return m, m.sendStart()
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

// CanStart reports whether the start action is enabled.
func (m *Model) CanStart() bool {
	return m.status.PageEnabled && !m.busy && m.err == nil
}

// Busy reports whether the daemon is running an operation.
func (m *Model) Busy() bool { return m.busy }

// LastStatus returns the most recent status text.
func (m *Model) LastStatus() string { return m.lastText }

func (m *Model) pushStatus(text string) tea.Cmd {
	m.lastText = text
	m.lastIsErr = false

	cmd := m.history.InsertItem(0, statusItem{text: text, at: m.now()})
	if n := len(m.history.Items()); n > maxHistory {
		m.history.RemoveItem(n - 1)
	}
	return cmd
}

func (m *Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		st, err := m.backend.Status(m.ctx)
		return statusFetchedMsg(st, err)
	}
}

func (m *Model) subscribe() tea.Cmd {
	return func() tea.Msg {
		events, err := m.backend.Subscribe(m.ctx)
		return subscribedMsg(events, err)
	}
}

func (m *Model) sendStart() tea.Cmd {
	return func() tea.Msg {
		return commandSentMsg(m.backend.Start(m.ctx))
	}
}

func (m *Model) waitForNotification() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if events == nil {
			return streamClosedMsg()
		}
		n, ok := <-events
		if !ok {
			return streamClosedMsg()
		}
		return notificationMsg(n)
	}
}

// View renders the popup.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("spotfill"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.refresh, m.keys.quit}))
		return styles.frame.Render(b.String())
	}

	playlist := m.status.PlaylistID
	if playlist == "" {
		playlist = styles.warn.Render("open a playlist page")
	}
	fmt.Fprintf(&b, "Playlist: %s\n", playlist)
	fmt.Fprintf(&b, "Credentials: %s  Identity: %s\n",
		check(m.status.HasAuthorization && m.status.HasClientToken), check(m.status.IdentityKnown))

	b.WriteString("\n")
	switch {
	case m.busy:
		fmt.Fprintf(&b, "%s Adding random tracks...\n", m.spinner.View())
	case m.lastText != "" && m.lastIsErr:
		b.WriteString(styles.err.Render(m.lastText) + "\n")
	case m.lastText != "":
		b.WriteString(styles.ok.Render(m.lastText) + "\n")
	default:
		b.WriteString(styles.help.Render("Idle") + "\n")
	}

	if len(m.history.Items()) > 0 {
		b.WriteString("\n")
		b.WriteString(m.history.View())
		b.WriteString("\n")
	}

	start := m.keys.start
	start.SetEnabled(m.CanStart())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{start, m.keys.refresh, m.keys.quit}))

	return styles.frame.Render(b.String())
}

func check(ok bool) string {
	if ok {
		return styles.ok.Render("✓")
	}
	return styles.warn.Render("…")
}

// Run starts the popup program until the user quits.
func Run(ctx context.Context, backend Backend) error {
	_, err := tea.NewProgram(NewModel(ctx, backend), tea.WithContext(ctx)).Run()
	return err
}
