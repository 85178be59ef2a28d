package recorder

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/docvoice/docvoice/internal/log"
)

// Capture parameters. 16 kHz mono PCM is what the transcription models want.
const (
	SampleRate      = 16000
	Channels        = 1
	FramesPerBuffer = 1024
)

// PortAudioDevice captures microphone audio through portaudio. It only
// produces uncompressed PCM, so encoding negotiation always lands on WAV.
//
// The capture loop runs on its own goroutine between Start and Stop and
// delivers 16-bit little-endian PCM chunks at the slice interval.
type PortAudioDevice struct {
	logger log.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []float32
	running bool
	done    chan struct{}
}

// NewPortAudioDevice initializes the portaudio runtime and returns a device.
// Call Terminate when the process is done with audio.
func NewPortAudioDevice(logger log.Logger) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &PortAudioDevice{
		logger: logger,
		buffer: make([]float32, FramesPerBuffer),
	}, nil
}

// Probe checks that a default input device exists.
func (d *PortAudioDevice) Probe() error {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if dev.MaxInputChannels < Channels {
		return fmt.Errorf("%w: default device has no input channels", ErrNoDevice)
	}
	return nil
}

// Supports reports PCM WAV only; portaudio delivers raw samples.
func (d *PortAudioDevice) Supports(encoding Encoding) bool {
	return encoding == EncodingPCMWAV
}

// Start acquires the default input stream and begins the capture loop.
func (d *PortAudioDevice) Start(encoding Encoding, interval time.Duration, onChunk func([]byte)) error {
	if encoding != EncodingPCMWAV {
		return fmt.Errorf("unsupported capture encoding %q", encoding)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrDeviceBusy
	}

	stream, err := portaudio.OpenDefaultStream(
		Channels, 0, SampleRate, FramesPerBuffer, d.buffer)
	if err != nil {
		return fmt.Errorf("opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("starting input stream: %w", err)
	}

	d.stream = stream
	d.running = true
	d.done = make(chan struct{})

	go d.captureLoop(interval, onChunk)
	return nil
}

// captureLoop reads frames from the stream and flushes accumulated PCM to
// onChunk every interval. The final partial slice is flushed on exit, before
// done is closed, so Stop observes a complete buffer.
func (d *PortAudioDevice) captureLoop(interval time.Duration, onChunk func([]byte)) {
	var pending []byte
	flushAt := time.Now().Add(interval)

	defer func() {
		if len(pending) > 0 {
			onChunk(pending)
		}
		close(d.done)
	}()

	for {
		d.mu.Lock()
		running := d.running
		stream := d.stream
		d.mu.Unlock()
		if !running || stream == nil {
			return
		}

		available, err := stream.AvailableToRead()
		if err != nil || available == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		if err := stream.Read(); err != nil {
			d.logger.Debug("stream read error", "error", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}

		pending = append(pending, pcm16Bytes(d.buffer)...)

		if time.Now().After(flushAt) {
			onChunk(pending)
			pending = nil
			flushAt = time.Now().Add(interval)
		}
	}
}

// Stop halts the capture loop, waits for the final flush, and releases the
// stream. Safe to call repeatedly.
func (d *PortAudioDevice) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	stream := d.stream
	d.stream = nil
	done := d.done
	d.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			d.logger.Warn("capture loop did not exit in time")
		}
	}

	if stream != nil {
		if err := stream.Stop(); err != nil {
			d.logger.Debug("stream stop error", "error", err)
		}
		if err := stream.Close(); err != nil {
			return fmt.Errorf("closing input stream: %w", err)
		}
	}
	return nil
}

// Terminate shuts down the portaudio runtime.
func (d *PortAudioDevice) Terminate() error {
	_ = d.Stop()
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminating portaudio: %w", err)
	}
	return nil
}

// pcm16Bytes converts float32 samples to 16-bit little-endian PCM.
func pcm16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		v := int16(sample * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
