package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/docvoice/docvoice/internal/voice"
)

// toggleDoneMsg signals that one Toggle call has returned. Statuses and the
// rendered exchange arrive separately through the feed.
type toggleDoneMsg struct {
	err error
}

// toggle advances the handshake off the event loop; recording start returns
// quickly, stop blocks for the full exchange round trip.
func (m *Model) toggle() tea.Cmd {
	conv, ctx := m.conversation, m.ctx
	return func() tea.Msg {
		return toggleDoneMsg{err: conv.Toggle(ctx)}
	}
}

// replySavedMsg reports the outcome of writing reply audio to disk.
type replySavedMsg struct {
	path string
	err  error
}

// saveReply decodes and writes the reply audio in a command so file IO stays
// off the event loop.
func saveReply(dir string, result *voice.ExchangeResult) tea.Cmd {
	return func() tea.Msg {
		audio, err := result.DecodeAudio()
		if err != nil {
			return replySavedMsg{err: err}
		}
		if len(audio) == 0 {
			return replySavedMsg{err: errors.New("empty reply audio")}
		}
		path := filepath.Join(dir, fmt.Sprintf("reply_%d.mp3", time.Now().Unix()))
		if err := os.WriteFile(path, audio, 0o600); err != nil {
			return replySavedMsg{err: err}
		}
		return replySavedMsg{path: path}
	}
}
