// Package tui provides the Bubble Tea terminal interface for voice
// conversations: Enter toggles recording, exchanges render in a scrollable
// transcript, and the help bar tracks what the single control does next.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"

	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/recorder"
)

// State represents the UI state machine.
type State int

// UI state machine states.
const (
	StateIdle       State = iota // Awaiting Enter to start recording
	StateRecording               // Microphone open
	StateProcessing              // Recording submitted, awaiting the reply
)

// maxMessages bounds the transcript to prevent unbounded growth.
const maxMessages = 200

// Message role constants for transcript display.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleStatus    = "status"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 1
	statusLines    = 1
	helpLines      = 1
	minViewport    = 3
)

// Message is one transcript entry.
type Message struct {
	Role  string // "user", "assistant", "status"
	Level recorder.StatusLevel
	Text  string
}

// Toggler advances the two-phase voice handshake. Implemented by
// *voice.Conversation.
type Toggler interface {
	Toggle(ctx context.Context) error
}

// Config wires a Model.
type Config struct {
	Conversation Toggler
	Feed         *Feed
	Stop         func() // releases the capture session on exit, nil allowed
	SaveDir      string // save reply audio here when non-empty
	Logger       log.Logger
}

// Model is the Bubble Tea model for the voice conversation interface.
type Model struct {
	conversation Toggler
	feed         *Feed
	stop         func()
	saveDir      string
	logger       log.Logger
	ctx          context.Context

	state State
	busy  bool // a Toggle call is in flight

	messages []Message
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	styles   Styles
	viewBuf  strings.Builder

	width  int
	height int
}

// New creates the voice UI model.
//
// ctx MUST be the same context passed to tea.WithContext() so command
// goroutines and the program cancel together.
func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Conversation == nil {
		return nil, errors.New("tui.New: conversation is required")
	}
	if cfg.Feed == nil {
		return nil, errors.New("tui.New: feed is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{} // Keys are routed explicitly in handleKey

	return &Model{
		conversation: cfg.Conversation,
		feed:         cfg.Feed,
		stop:         cfg.Stop,
		saveDir:      cfg.SaveDir,
		logger:       cfg.Logger,
		ctx:          ctx,
		viewport:     vp,
		spinner:      sp,
		help:         help.New(),
		keys:         newKeyMap(),
		styles:       DefaultStyles(),
		width:        80, // Default until WindowSizeMsg arrives
	}, nil
}

// addMessage appends a transcript entry and enforces the maxMessages bound.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.rebuildViewport()
	return tea.Batch(m.spinner.Tick, m.feed.next())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		fixedHeight := separatorLines + statusLines + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(vpHeight)
		m.help.SetWidth(msg.Width)

		m.rebuildViewport()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case feedMsg:
		return m.handleEvent(event(msg))

	case toggleDoneMsg:
		m.busy = false
		if msg.err != nil {
			// The status sink already carried the user-facing message.
			m.logger.Debug("voice exchange failed", "error", msg.err)
		}
		// The start path keeps recording; every other path returns to idle.
		if m.state != StateRecording {
			m.state = StateIdle
		}
		return m, nil

	case replySavedMsg:
		if msg.err != nil {
			m.addMessage(Message{Role: roleStatus, Level: recorder.StatusWarning,
				Text: "Could not save reply audio: " + msg.err.Error()})
		} else {
			m.addMessage(Message{Role: roleStatus, Level: recorder.StatusInfo,
				Text: "Reply audio saved to " + msg.path})
		}
		m.rebuildViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	return m, nil
}

// handleEvent folds one conversation event into the transcript and state,
// then re-arms the feed listener.
func (m *Model) handleEvent(ev event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.feed.next()}

	switch {
	case ev.control:
		if ev.recording {
			m.state = StateRecording
		} else if m.state == StateRecording {
			m.state = StateProcessing
			cmds = append(cmds, m.spinner.Tick)
		}

	case ev.result != nil:
		m.addMessage(Message{Role: roleUser, Text: ev.result.UserSpeech})
		m.addMessage(Message{Role: roleAssistant, Text: ev.result.AIResponseText})
		summary := fmt.Sprintf("%.2fs pipeline", ev.result.ProcessingTime.TotalPipeline)
		if n := len(ev.result.Sources); n > 0 {
			summary = fmt.Sprintf("%d source chunk(s), %s", n, summary)
		}
		m.addMessage(Message{Role: roleStatus, Level: recorder.StatusInfo, Text: summary})
		if m.saveDir != "" {
			cmds = append(cmds, saveReply(m.saveDir, ev.result))
		}

	case ev.hasStatus:
		m.addMessage(Message{Role: roleStatus, Level: ev.level, Text: ev.status})
	}

	m.rebuildViewport()
	m.viewport.GotoBottom()
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	_, _ = m.viewBuf.WriteString(m.viewport.View())
	_, _ = m.viewBuf.WriteString("\n")
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")
	_, _ = m.viewBuf.WriteString(m.renderStatusLine())
	_, _ = m.viewBuf.WriteString("\n")
	_, _ = m.viewBuf.WriteString(m.renderHelp())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewport reconstructs the transcript content. Called when messages
// or dimensions change.
func (m *Model) rebuildViewport() {
	var b strings.Builder

	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, msg := range m.messages {
		switch msg.Role {
		case roleUser:
			_, _ = b.WriteString(m.styles.User.Render("You> "))
			_, _ = b.WriteString(msg.Text)
		case roleAssistant:
			_, _ = b.WriteString(m.styles.Assistant.Render("docvoice> "))
			_, _ = b.WriteString(msg.Text)
		case roleStatus:
			_, _ = b.WriteString(m.styles.statusStyle(msg.Level).Render(msg.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusLine shows what the single control is doing right now.
func (m *Model) renderStatusLine() string {
	switch m.state {
	case StateRecording:
		return m.styles.Recording.Render("● Recording — Enter stops and sends")
	case StateProcessing:
		return m.spinner.View() + m.styles.Info.Render(" Processing your voice message...")
	default:
		return m.styles.Info.Render("Idle — Enter starts recording")
	}
}

// renderHelp returns state-appropriate key bindings; the Enter affordance
// flips between record and stop-and-send with the handshake.
func (m *Model) renderHelp() string {
	return m.help.ShortHelpView(m.keys.forState(m.state))
}
