// Package recorder manages the audio capture lifecycle: device negotiation,
// chunk buffering, playback, and handoff of the assembled recording.
package recorder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/docvoice/docvoice/internal/log"
)

// State is the recording session phase.
type State int

const (
	// StateIdle means no capture is in progress and no buffer is pending.
	StateIdle State = iota

	// StateRecording means the device is acquired and chunks are arriving.
	StateRecording

	// StateBufferReady means capture finished and the chunk sequence is
	// sealed, awaiting playback, submission, or reset.
	StateBufferReady

	// StateSubmitting means the assembled buffer is in flight to the
	// voice-exchange endpoint.
	StateSubmitting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateBufferReady:
		return "buffer_ready"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// ErrCaptureUnavailable is returned by Start when Initialize found no
// usable capture capability.
var ErrCaptureUnavailable = errors.New("audio capture unavailable")

// Session owns one microphone capture lifecycle at a time.
//
// At most one recording is active per Session. Chunks are append-only while
// recording and immutable after Stop. The capture device is exclusively held
// between Start and Stop; Stop is the sole release point and is idempotent.
//
// Safe for concurrent use: chunk delivery arrives on the device goroutine
// while control calls arrive from the caller.
type Session struct {
	device CaptureDevice
	status StatusSink
	logger log.Logger

	mu          sync.Mutex
	state       State
	encoding    Encoding
	chunks      [][]byte
	initialized bool
	unavailable bool
}

// NewSession creates a Session around a capture device. status and logger
// may be nil.
func NewSession(device CaptureDevice, status StatusSink, logger log.Logger) *Session {
	if status == nil {
		status = NopStatusSink{}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Session{
		device:   device,
		status:   status,
		logger:   logger,
		encoding: DefaultEncoding,
	}
}

// Initialize probes capture capability. When unavailable it marks all
// recording operations disabled for the session lifetime and reports the
// condition, without returning an error. Idempotent.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.initialized = true

	if s.device == nil {
		s.unavailable = true
		s.logger.Warn("audio capture unavailable", "reason", "no device configured")
		s.status.Publish(StatusError, ErrorStatus("audio recording is not supported on this system"))
		return
	}
	if err := s.device.Probe(); err != nil {
		s.unavailable = true
		s.logger.Warn("audio capture unavailable", "error", err)
		s.status.Publish(StatusError, ErrorStatus("audio recording is not supported on this system"))
		return
	}
}

// Available reports whether recording controls are enabled.
func (s *Session) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && !s.unavailable
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Encoding returns the encoding negotiated for the current or last capture.
func (s *Session) Encoding() Encoding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

// Start begins a capture. Starting while a session is active is a logged
// no-op that leaves the active session's buffer untouched. Device or
// permission errors are reported and leave no active session; retrying Start
// is the recovery path.
func (s *Session) Start() error {
	s.mu.Lock()

	if !s.initialized || s.unavailable {
		s.mu.Unlock()
		s.status.Publish(StatusError, ErrorStatus("audio recording is not supported on this system"))
		return ErrCaptureUnavailable
	}
	if s.state == StateRecording {
		s.logger.Debug("start ignored, session already recording")
		s.mu.Unlock()
		return nil
	}
	if s.state == StateSubmitting {
		s.logger.Debug("start ignored during submission")
		s.mu.Unlock()
		return nil
	}

	encoding := NegotiateEncoding(s.device)
	s.encoding = encoding
	s.chunks = nil
	s.state = StateRecording
	s.mu.Unlock()

	if err := s.device.Start(encoding, SliceInterval, s.appendChunk); err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.logger.Error("failed to start capture", "error", err)
		s.status.Publish(StatusError, ErrorStatus(fmt.Sprintf("could not access microphone: %v", err)))
		return fmt.Errorf("starting capture: %w", err)
	}

	s.logger.Info("recording started", "encoding", string(encoding))
	s.status.Publish(StatusInfo, "Recording... Click again to stop.")
	return nil
}

// appendChunk receives one encoded slice from the device. Delivery order is
// preserved; chunks arriving after Stop sealed the buffer are dropped.
func (s *Session) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	s.chunks = append(s.chunks, buf)
}

// Stop finalizes the capture. The device flushes its final slice before the
// buffer seals, then the hardware is released unconditionally, even when
// nothing was buffered. Calling Stop with no active session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		s.logger.Debug("stop ignored, no active recording")
		return
	}
	s.mu.Unlock()

	// The final flush may deliver one more chunk; the session must still be
	// in StateRecording for appendChunk to accept it.
	if err := s.device.Stop(); err != nil {
		s.logger.Warn("device stop reported error", "error", err)
	}

	s.mu.Lock()
	s.state = StateBufferReady
	chunkCount := len(s.chunks)
	s.mu.Unlock()

	s.logger.Info("recording stopped", "chunks", chunkCount)
	s.status.Publish(StatusSuccess, "Recording complete. You can play it back or send it.")
}

// Bytes assembles the sealed chunk sequence into one buffer, concatenated in
// delivery order. Returns nil when nothing was recorded.
func (s *Session) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) == 0 {
		return nil
	}
	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	buf := make([]byte, 0, total)
	for _, c := range s.chunks {
		buf = append(buf, c...)
	}
	return buf
}

// Play renders the buffered recording. With no buffered chunks it publishes
// a warning and does nothing.
func (s *Session) Play(player Player) error {
	audio := s.Bytes()
	if len(audio) == 0 {
		s.status.Publish(StatusWarning, "No recording available. Record something first.")
		return nil
	}
	if player == nil {
		return fmt.Errorf("no audio player configured")
	}
	if err := player.Play(audio, s.Encoding()); err != nil {
		s.status.Publish(StatusError, ErrorStatus(fmt.Sprintf("playback failed: %v", err)))
		return fmt.Errorf("playing recording: %w", err)
	}
	return nil
}

// Reset discards the buffer and returns to idle. No-op while recording.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRecording || s.state == StateSubmitting {
		return
	}
	s.chunks = nil
	s.state = StateIdle
}

// BeginSubmit transitions BufferReady -> Submitting and reports whether the
// transition happened. Re-entrant submission attempts are rejected, never
// interleaved.
func (s *Session) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBufferReady {
		return false
	}
	s.state = StateSubmitting
	return true
}

// EndSubmit returns to idle after a submission completes, success or not.
// The consumed buffer is discarded.
func (s *Session) EndSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		s.chunks = nil
		s.state = StateIdle
	}
}
