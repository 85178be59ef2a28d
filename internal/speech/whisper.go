package speech

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/docvoice/docvoice/internal/log"
)

// WhisperTranscriber runs speech-to-text against an OpenAI-compatible audio
// API (api.openai.com, Groq, or a self-hosted whisper server).
type WhisperTranscriber struct {
	client *openai.Client
	model  string
	logger log.Logger
}

// NewWhisperTranscriber creates the transcriber. baseURL may be empty for
// the default OpenAI endpoint.
func NewWhisperTranscriber(apiKey, baseURL, model string, logger log.Logger) *WhisperTranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Transcribe sends the audio and returns text plus the detected language.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader, language string) (*Transcription, error) {
	start := time.Now()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   audio,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", filename, err)
	}

	detected := resp.Language
	if detected == "" {
		detected = language
	}
	if detected == "" {
		detected = "unknown"
	}

	w.logger.Info("transcription complete",
		"file", filename,
		"language", detected,
		"text_length", len(resp.Text),
		"elapsed", time.Since(start).Seconds())

	segments := make([]Segment, len(resp.Segments))
	for i, s := range resp.Segments {
		segments[i] = Segment{ID: s.ID, Start: s.Start, End: s.End, Text: s.Text}
	}

	return &Transcription{
		Text:     resp.Text,
		Language: detected,
		Duration: resp.Duration,
		Segments: segments,
	}, nil
}

// Info describes the engine for /services/info.
func (w *WhisperTranscriber) Info() EngineInfo {
	return EngineInfo{Engine: "whisper", Model: w.model}
}
