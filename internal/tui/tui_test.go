package tui

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/goleak"

	"github.com/docvoice/docvoice/internal/recorder"
	"github.com/docvoice/docvoice/internal/voice"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeToggler struct {
	calls int
	err   error
}

func (f *fakeToggler) Toggle(context.Context) error {
	f.calls++
	return f.err
}

type testFixture struct {
	model   *Model
	toggler *fakeToggler
	feed    *Feed
	stopped bool
	cancel  context.CancelFunc
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &testFixture{
		toggler: &fakeToggler{},
		feed:    NewFeed(ctx),
		cancel:  cancel,
	}
	model, err := New(ctx, Config{
		Conversation: f.toggler,
		Feed:         f.feed,
		Stop:         func() { f.stopped = true },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.model = model
	return f
}

func pressEnter() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyEnter}
}

func TestNewRequiresDependencies(t *testing.T) {
	feed := NewFeed(context.Background())

	if _, err := New(context.Background(), Config{Feed: feed}); err == nil {
		t.Error("New() accepted nil conversation")
	}
	if _, err := New(context.Background(), Config{Conversation: &fakeToggler{}}); err == nil {
		t.Error("New() accepted nil feed")
	}
}

func TestEnterTogglesConversation(t *testing.T) {
	f := newFixture(t)

	_, cmd := f.model.handleKey(pressEnter())
	if cmd == nil {
		t.Fatal("Enter in idle state returned no command")
	}
	if !f.model.busy {
		t.Error("model not marked busy while toggle is in flight")
	}

	msg := cmd()
	done, ok := msg.(toggleDoneMsg)
	if !ok {
		t.Fatalf("command returned %T, want toggleDoneMsg", msg)
	}
	if done.err != nil {
		t.Errorf("toggle error = %v", done.err)
	}
	if f.toggler.calls != 1 {
		t.Errorf("Toggle called %d times, want 1", f.toggler.calls)
	}
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	f := newFixture(t)
	f.model.busy = true

	_, cmd := f.model.handleKey(pressEnter())
	if cmd != nil {
		t.Error("Enter while busy should not start another toggle")
	}

	f.model.busy = false
	f.model.state = StateProcessing
	_, cmd = f.model.handleKey(pressEnter())
	if cmd != nil {
		t.Error("Enter while processing should be ignored")
	}
}

func TestControlEventsDriveState(t *testing.T) {
	f := newFixture(t)

	f.model.handleEvent(event{control: true, recording: true})
	if f.model.state != StateRecording {
		t.Fatalf("state after recording flip = %v, want StateRecording", f.model.state)
	}

	f.model.handleEvent(event{control: true, recording: false})
	if f.model.state != StateProcessing {
		t.Fatalf("state after stop flip = %v, want StateProcessing", f.model.state)
	}

	f.model.Update(toggleDoneMsg{})
	if f.model.state != StateIdle {
		t.Errorf("state after toggle done = %v, want StateIdle", f.model.state)
	}
	if f.model.busy {
		t.Error("busy not cleared after toggle done")
	}
}

func TestToggleDoneKeepsRecordingState(t *testing.T) {
	f := newFixture(t)

	// The start half of the handshake: control flips to recording, then the
	// quick Toggle return must not bounce the state back to idle.
	f.model.handleEvent(event{control: true, recording: true})
	f.model.Update(toggleDoneMsg{})
	if f.model.state != StateRecording {
		t.Errorf("state = %v, want StateRecording", f.model.state)
	}
}

func TestHelpAffordanceFollowsState(t *testing.T) {
	f := newFixture(t)

	idle := f.model.renderHelp()
	if !strings.Contains(idle, "record") {
		t.Errorf("idle help = %q, want record affordance", idle)
	}

	f.model.state = StateRecording
	recording := f.model.renderHelp()
	if !strings.Contains(recording, "stop & send") {
		t.Errorf("recording help = %q, want stop & send affordance", recording)
	}

	f.model.state = StateProcessing
	processing := f.model.renderHelp()
	if strings.Contains(processing, "record") || strings.Contains(processing, "stop & send") {
		t.Errorf("processing help = %q, should not offer the record control", processing)
	}
}

func TestExchangeRendersTranscript(t *testing.T) {
	f := newFixture(t)

	f.model.handleEvent(event{result: &voice.ExchangeResult{
		UserSpeech:     "what is chapter two about",
		AIResponseText: "Chapter two covers error handling.",
		Sources:        []voice.Source{{ID: 1}},
		ProcessingTime: voice.ProcessingTime{TotalPipeline: 1.5},
	}})

	if len(f.model.messages) != 3 {
		t.Fatalf("len(messages) = %d, want 3", len(f.model.messages))
	}
	if f.model.messages[0].Role != roleUser || f.model.messages[0].Text != "what is chapter two about" {
		t.Errorf("first message = %+v", f.model.messages[0])
	}
	if f.model.messages[1].Role != roleAssistant {
		t.Errorf("second message role = %q, want assistant", f.model.messages[1].Role)
	}
	if !strings.Contains(f.model.messages[2].Text, "1 source chunk(s)") {
		t.Errorf("summary = %q", f.model.messages[2].Text)
	}
}

func TestStatusEventsAppendToTranscript(t *testing.T) {
	f := newFixture(t)

	f.model.handleEvent(event{hasStatus: true, level: recorder.StatusError, status: "could not access microphone"})

	if len(f.model.messages) != 1 {
		t.Fatalf("len(messages) = %d, want 1", len(f.model.messages))
	}
	got := f.model.messages[0]
	if got.Role != roleStatus || got.Level != recorder.StatusError || got.Text != "could not access microphone" {
		t.Errorf("message = %+v", got)
	}
}

func TestQuitStopsCapture(t *testing.T) {
	f := newFixture(t)

	_, cmd := f.model.handleKey(tea.KeyPressMsg{Code: 'q'})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if !f.stopped {
		t.Error("session stop was not called on quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit the program")
	}
}

func TestFeedDeliversEvents(t *testing.T) {
	f := newFixture(t)

	f.feed.Publish(recorder.StatusInfo, "Recording... Click again to stop.")
	msg := f.feed.next()()
	ev, ok := msg.(feedMsg)
	if !ok {
		t.Fatalf("next() returned %T, want feedMsg", msg)
	}
	if !ev.hasStatus || ev.status != "Recording... Click again to stop." {
		t.Errorf("event = %+v", ev)
	}
}

func TestFeedUnblocksOnCancel(t *testing.T) {
	f := newFixture(t)

	f.cancel()
	if msg := f.feed.next()(); msg != nil {
		t.Errorf("next() after cancel = %v, want nil", msg)
	}
}
