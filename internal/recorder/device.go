package recorder

import (
	"errors"
	"time"
)

var (
	// ErrDeviceBusy is returned when Start is called on a device that is
	// already capturing.
	ErrDeviceBusy = errors.New("capture device already in use")

	// ErrNoDevice indicates no capture hardware is available.
	ErrNoDevice = errors.New("no audio capture device available")
)

// SliceInterval is how often buffered audio is delivered as a chunk.
const SliceInterval = 100 * time.Millisecond

// CaptureDevice abstracts the audio input hardware. The session owns exactly
// one device; Stop must release the hardware on every path and be safe to
// call when already stopped.
type CaptureDevice interface {
	// Probe reports whether capture is possible at all (hardware present,
	// driver initialized). Must not grab the device.
	Probe() error

	// Supports reports whether the device can capture in the encoding.
	Supports(encoding Encoding) bool

	// Start acquires the device and begins delivering encoded chunks to
	// onChunk at the slice interval, in capture order. onChunk is invoked
	// from the device's delivery goroutine.
	Start(encoding Encoding, interval time.Duration, onChunk func([]byte)) error

	// Stop flushes any buffered final slice (one last onChunk call), then
	// releases the hardware. Idempotent.
	Stop() error
}

// Player renders an assembled recording through an audio output.
type Player interface {
	Play(audio []byte, encoding Encoding) error
}
