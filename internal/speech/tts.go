package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/log"
)

// OpenAISynthesizer produces MP3 speech via an OpenAI-compatible TTS API.
// The voice is fixed by config; the language parameter is validated against
// the supported table and passed through for logging, since the TTS models
// infer pronunciation from the text itself.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	voice  string
	logger log.Logger
}

// NewOpenAISynthesizer creates the synthesizer. baseURL may be empty.
func NewOpenAISynthesizer(apiKey, baseURL, model, voice string, logger log.Logger) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		voice:  voice,
		logger: logger,
	}
}

// Synthesize renders the text as MP3 bytes.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if language != "" && !config.TTSLanguageSupported(language) {
		return nil, fmt.Errorf("unsupported TTS language %q", language)
	}

	start := time.Now()

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading synthesized audio: %w", err)
	}

	s.logger.Info("synthesis complete",
		"language", language,
		"text_length", len(text),
		"audio_bytes", len(audio),
		"elapsed", time.Since(start).Seconds())

	return audio, nil
}

// Info describes the engine for /services/info.
func (s *OpenAISynthesizer) Info() EngineInfo {
	return EngineInfo{
		Engine:             "openai-tts",
		Model:              s.model,
		Voice:              s.voice,
		SupportedLanguages: len(config.TTSLanguages),
	}
}
