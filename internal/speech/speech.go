// Package speech wraps the STT and TTS engines behind small interfaces so
// handlers and the voice pipeline do not care which vendor serves them.
package speech

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnknownEngine is returned by the factory for unrecognized engines.
	ErrUnknownEngine = errors.New("unknown speech engine")

	// ErrEmptyText is returned when synthesis is asked for empty input.
	ErrEmptyText = errors.New("no text to synthesize")

	// ErrMissingAPIKey is returned by the factory when no key is configured.
	ErrMissingAPIKey = errors.New("missing speech API key")
)

// Segment is one timed span of a transcription.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the result of speech-to-text.
type Transcription struct {
	Text     string    `json:"text"`
	Language string    `json:"language"` // detected, or the requested hint
	Duration float64   `json:"duration"` // audio length in seconds, 0 if unknown
	Segments []Segment `json:"segments"`
}

// Transcriber converts recorded audio to text. The filename's extension
// tells the engine the container format. An empty language lets the engine
// detect it.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, language string) (*Transcription, error)
}

// Synthesizer converts text to spoken audio (MP3 bytes).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// EngineInfo describes a configured engine for /services/info.
type EngineInfo struct {
	Engine             string `json:"engine"`
	Model              string `json:"model"`
	Voice              string `json:"voice,omitempty"`
	SupportedLanguages int    `json:"supported_languages,omitempty"`
	DefaultLanguage    string `json:"default_language,omitempty"`
}
