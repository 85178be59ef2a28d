package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/docvoice/docvoice/internal/recorder"
	"github.com/docvoice/docvoice/internal/voice"
)

// feedBufferSize absorbs status bursts from the capture goroutine while the
// UI is mid-render.
const feedBufferSize = 32

// event is a discriminated union for everything the conversation side sends
// to the UI. Exactly one of the groups is set per event.
type event struct {
	// Status line (hasStatus discriminates, empty messages are valid)
	status    string
	level     recorder.StatusLevel
	hasStatus bool

	// Control-affordance flip
	control   bool
	recording bool

	// Finished exchange
	result *voice.ExchangeResult
}

// feedMsg delivers one conversation event into Update.
type feedMsg event

// Feed carries recorder statuses, control flips, and finished exchanges from
// the conversation goroutine into the Bubble Tea event loop. It implements
// recorder.StatusSink, voice.Control, and voice.Renderer.
type Feed struct {
	ctx context.Context
	ch  chan event
}

// NewFeed creates a Feed bound to ctx; sends are dropped once ctx is
// canceled so conversation goroutines never block after the UI exits.
func NewFeed(ctx context.Context) *Feed {
	return &Feed{ctx: ctx, ch: make(chan event, feedBufferSize)}
}

func (f *Feed) send(ev event) {
	select {
	case f.ch <- ev:
	case <-f.ctx.Done():
	}
}

// Publish implements recorder.StatusSink.
func (f *Feed) Publish(level recorder.StatusLevel, message string) {
	f.send(event{status: message, level: level, hasStatus: true})
}

// SetRecording implements voice.Control.
func (f *Feed) SetRecording(recording bool) {
	f.send(event{control: true, recording: recording})
}

// Render implements voice.Renderer.
func (f *Feed) Render(result *voice.ExchangeResult) {
	f.send(event{result: result})
}

// next waits for the next conversation event. Re-armed by Update after each
// delivery; unblocks on ctx cancellation so the command goroutine exits.
func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-f.ch:
			return feedMsg(ev)
		case <-f.ctx.Done():
			return nil
		}
	}
}
