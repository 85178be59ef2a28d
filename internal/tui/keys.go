package tui

import (
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Record     key.Binding
	StopSend   key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Record:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "record")),
		StopSend:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "stop & send")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// forState returns the bindings shown for a UI state. The Enter binding
// carries the current half of the record/stop handshake.
func (k keyMap) forState(state State) []key.Binding {
	switch state {
	case StateRecording:
		return []key.Binding{k.StopSend, k.Quit}
	case StateProcessing:
		return []key.Binding{k.ScrollUp, k.ScrollDown, k.Quit}
	default:
		return []key.Binding{k.Record, k.ScrollUp, k.ScrollDown, k.Quit}
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c', 'd':
			return m, m.quit()
		}
		return m, nil
	}

	switch k.Code {
	case tea.KeyEnter:
		// Ignore the control while a submission is in flight; the
		// conversation would ignore it too.
		if m.busy || m.state == StateProcessing {
			return m, nil
		}
		m.busy = true
		return m, m.toggle()

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil

	case 'q':
		return m, m.quit()
	}

	return m, nil
}

// quit releases the capture session and exits the program.
func (m *Model) quit() tea.Cmd {
	if m.stop != nil {
		m.stop()
	}
	return tea.Quit
}
