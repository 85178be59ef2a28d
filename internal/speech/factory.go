package speech

import (
	"fmt"
	"os"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/log"
)

// apiKey resolves the speech API key: explicit config first, then the
// OPENAI_API_KEY environment variable.
func apiKey(cfg config.SpeechConfig) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// NewTranscriber builds the configured STT engine. A missing API key is an
// error so callers can disable the audio surface instead of registering
// endpoints that fail on every request.
func NewTranscriber(cfg config.SpeechConfig, logger log.Logger) (Transcriber, error) {
	key := apiKey(cfg)
	if key == "" {
		return nil, fmt.Errorf("%w: set SPEECH_API_KEY or OPENAI_API_KEY", ErrMissingAPIKey)
	}
	switch cfg.STTEngine {
	case "whisper", "":
		return NewWhisperTranscriber(key, cfg.BaseURL, cfg.STTModel, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.STTEngine)
	}
}

// NewSynthesizer builds the TTS engine.
func NewSynthesizer(cfg config.SpeechConfig, logger log.Logger) (Synthesizer, error) {
	key := apiKey(cfg)
	if key == "" {
		return nil, fmt.Errorf("%w: set SPEECH_API_KEY or OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if cfg.TTSModel == "" {
		return nil, fmt.Errorf("%w: empty TTS model", ErrUnknownEngine)
	}
	return NewOpenAISynthesizer(key, cfg.BaseURL, cfg.TTSModel, cfg.TTSVoice, logger), nil
}
