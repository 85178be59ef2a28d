package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDevice implements CaptureDevice with scripted behavior.
type fakeDevice struct {
	mu         sync.Mutex
	supported  map[Encoding]bool
	probeErr   error
	startErr   error
	finalChunk []byte

	onChunk     func([]byte)
	openHandles int
	startCalls  int
	stopCalls   int
	lastEnc     Encoding
}

func (d *fakeDevice) Probe() error { return d.probeErr }

func (d *fakeDevice) Supports(enc Encoding) bool {
	return d.supported[enc]
}

func (d *fakeDevice) Start(enc Encoding, interval time.Duration, onChunk func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startCalls++
	d.lastEnc = enc
	if d.startErr != nil {
		return d.startErr
	}
	d.openHandles++
	d.onChunk = onChunk
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	onChunk := d.onChunk
	final := d.finalChunk
	d.stopCalls++
	if d.openHandles > 0 {
		d.openHandles--
	}
	d.onChunk = nil
	d.mu.Unlock()

	// Final buffered slice is flushed during Stop, like real hardware.
	if onChunk != nil && len(final) > 0 {
		onChunk(final)
	}
	return nil
}

func (d *fakeDevice) deliver(chunk []byte) {
	d.mu.Lock()
	onChunk := d.onChunk
	d.mu.Unlock()
	if onChunk != nil {
		onChunk(chunk)
	}
}

func (d *fakeDevice) handles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openHandles
}

// recordingSink captures published statuses.
type recordingSink struct {
	mu       sync.Mutex
	messages []string
	levels   []StatusLevel
}

func (s *recordingSink) Publish(level StatusLevel, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, level)
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) last() (StatusLevel, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return StatusInfo, ""
	}
	return s.levels[len(s.levels)-1], s.messages[len(s.messages)-1]
}

func pcmDevice() *fakeDevice {
	return &fakeDevice{supported: map[Encoding]bool{EncodingPCMWAV: true}}
}

func newTestSession(device CaptureDevice) (*Session, *recordingSink) {
	sink := &recordingSink{}
	s := NewSession(device, sink, nil)
	s.Initialize()
	return s, sink
}

func TestStartWhileActiveLeavesBufferUntouched(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver([]byte{1, 2, 3})

	// Second start must be a no-op: same buffer, no second device handle.
	if err := s.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if device.handles() != 1 {
		t.Errorf("open handles = %d, want 1", device.handles())
	}
	if device.startCalls != 1 {
		t.Errorf("device start calls = %d, want 1", device.startCalls)
	}

	s.Stop()
	if got := s.Bytes(); len(got) != 3 {
		t.Errorf("buffer = %d bytes, want 3 (original chunks preserved)", len(got))
	}
}

func TestStopWithZeroChunksReleasesDevice(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()

	if device.handles() != 0 {
		t.Errorf("open handles after stop = %d, want 0", device.handles())
	}
	if s.Bytes() != nil {
		t.Errorf("Bytes() = %v, want nil for empty recording", s.Bytes())
	}
}

func TestBytesBeforeAnyRecording(t *testing.T) {
	s, _ := newTestSession(pcmDevice())

	if got := s.Bytes(); got != nil {
		t.Errorf("Bytes() before recording = %v, want nil", got)
	}
}

func TestAssembledBufferConcatenatesInOrder(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver([]byte("aaa"))
	device.deliver([]byte("bb"))
	device.deliver([]byte("cccc"))
	s.Stop()

	got := s.Bytes()
	if string(got) != "aaabbcccc" {
		t.Errorf("Bytes() = %q, want %q", got, "aaabbcccc")
	}
	if len(got) != 3+2+4 {
		t.Errorf("len = %d, want sum of chunk lengths %d", len(got), 3+2+4)
	}
}

func TestEncodingNegotiationFirstSupportedWins(t *testing.T) {
	tests := []struct {
		name      string
		supported []Encoding
		want      Encoding
	}{
		{"all supported", []Encoding{EncodingOpusWebM, EncodingWebM, EncodingOggOpus, EncodingPCMWAV}, EncodingOpusWebM},
		{"opus missing", []Encoding{EncodingWebM, EncodingPCMWAV}, EncodingWebM},
		{"ogg and wav", []Encoding{EncodingOggOpus, EncodingPCMWAV}, EncodingOggOpus},
		{"pcm only", []Encoding{EncodingPCMWAV}, EncodingPCMWAV},
		{"none supported", nil, DefaultEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := &fakeDevice{supported: map[Encoding]bool{}}
			for _, enc := range tt.supported {
				device.supported[enc] = true
			}
			if got := NegotiateEncoding(device); got != tt.want {
				t.Errorf("NegotiateEncoding() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestThreeChunkScenario(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver(make([]byte, 10))
	device.deliver(make([]byte, 20))
	device.deliver(make([]byte, 30))
	s.Stop()

	if got := len(s.Bytes()); got != 60 {
		t.Errorf("len(Bytes()) = %d, want 60", got)
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	device := pcmDevice()
	s, sink := newTestSession(device)

	before := len(sink.messages)
	s.Stop()

	if device.stopCalls != 0 {
		t.Errorf("device stop calls = %d, want 0", device.stopCalls)
	}
	if len(sink.messages) != before {
		t.Errorf("statuses published on no-op stop: %v", sink.messages[before:])
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}

func TestFinalSliceFlushedOnStop(t *testing.T) {
	device := pcmDevice()
	device.finalChunk = []byte("tail")
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver([]byte("head-"))
	s.Stop()

	if got := string(s.Bytes()); got != "head-tail" {
		t.Errorf("Bytes() = %q, want %q (final slice flushed before seal)", got, "head-tail")
	}
}

func TestChunksAfterStopDropped(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver([]byte("kept"))
	s.Stop()

	// Simulates a straggler delivery after the buffer sealed.
	s.appendChunk([]byte("dropped"))

	if got := string(s.Bytes()); got != "kept" {
		t.Errorf("Bytes() = %q, want %q", got, "kept")
	}
}

func TestStartDeviceErrorLeavesNoActiveSession(t *testing.T) {
	device := pcmDevice()
	device.startErr = errors.New("permission denied")
	s, sink := newTestSession(device)

	if err := s.Start(); err == nil {
		t.Fatal("Start() succeeded, want device error")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle after device error", s.State())
	}
	level, msg := sink.last()
	if level != StatusError {
		t.Errorf("status level = %v, want error", level)
	}
	if msg == "" || msg[:7] != "Error: " {
		t.Errorf("status = %q, want Error: prefix", msg)
	}

	// Retrying start is the recovery path.
	device.startErr = nil
	if err := s.Start(); err != nil {
		t.Errorf("retry Start() error = %v", err)
	}
	s.Stop()
}

func TestInitializeUnavailableDisablesRecording(t *testing.T) {
	device := pcmDevice()
	device.probeErr = errors.New("no input device")
	sink := &recordingSink{}
	s := NewSession(device, sink, nil)

	s.Initialize()
	s.Initialize() // idempotent

	if s.Available() {
		t.Error("Available() = true, want false")
	}
	if err := s.Start(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Start() error = %v, want ErrCaptureUnavailable", err)
	}
}

func TestSubmitTransitions(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if s.BeginSubmit() {
		t.Error("BeginSubmit() from idle = true, want false")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver([]byte("audio"))

	if s.BeginSubmit() {
		t.Error("BeginSubmit() while recording = true, want false")
	}

	s.Stop()
	if !s.BeginSubmit() {
		t.Fatal("BeginSubmit() from buffer_ready = false, want true")
	}
	// Re-entrant activation during submission is rejected.
	if s.BeginSubmit() {
		t.Error("re-entrant BeginSubmit() = true, want false")
	}
	if err := s.Start(); err != nil {
		t.Errorf("Start() during submission error = %v, want silent no-op", err)
	}
	if s.State() != StateSubmitting {
		t.Errorf("state = %v, want submitting", s.State())
	}

	s.EndSubmit()
	if s.State() != StateIdle {
		t.Errorf("state after EndSubmit = %v, want idle", s.State())
	}
	if s.Bytes() != nil {
		t.Error("buffer not discarded after submission")
	}
}

func TestPlayWithEmptyBufferWarns(t *testing.T) {
	s, sink := newTestSession(pcmDevice())

	if err := s.Play(nil); err != nil {
		t.Fatalf("Play() error = %v, want nil warning path", err)
	}
	level, _ := sink.last()
	if level != StatusWarning {
		t.Errorf("status level = %v, want warning", level)
	}
}

type fakePlayer struct {
	played [][]byte
	enc    Encoding
	err    error
}

func (p *fakePlayer) Play(audio []byte, enc Encoding) error {
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, audio)
	p.enc = enc
	return nil
}

func TestPlayAssembledBuffer(t *testing.T) {
	device := pcmDevice()
	s, _ := newTestSession(device)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device.deliver([]byte("xy"))
	s.Stop()

	player := &fakePlayer{}
	if err := s.Play(player); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if len(player.played) != 1 || string(player.played[0]) != "xy" {
		t.Errorf("played = %v, want one buffer %q", player.played, "xy")
	}
	if player.enc != EncodingPCMWAV {
		t.Errorf("playback encoding = %q, want %q", player.enc, EncodingPCMWAV)
	}
}
