package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate performs comprehensive validation of the configuration.
// Fail-fast: called from Load before the config reaches any component.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (must be gemini, ollama, or openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}

	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d (overlap must be >= 0 and < size)",
			ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}

	if c.Speech.MaxAudioBytes <= 0 || c.Speech.MaxAudioBytes > 256*1024*1024 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidAudioLimit, c.Speech.MaxAudioBytes)
	}

	if !TTSLanguageSupported(c.Speech.DefaultLanguage) {
		return fmt.Errorf("%w: %q", ErrInvalidTTSLanguage, c.Speech.DefaultLanguage)
	}

	if err := c.validatePostgres(); err != nil {
		return err
	}

	if c.Provider == ProviderOllama {
		if _, err := url.Parse(c.OllamaHost); err != nil || c.OllamaHost == "" {
			return fmt.Errorf("invalid ollama host %q", c.OllamaHost)
		}
	}

	return nil
}

// ValidateServe checks additional requirements for running the HTTP server.
// API keys are provider-specific and read directly by the AI clients, so
// only their presence is checked here.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini provider", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrMissingAPIKey)
		}
	}

	// Speech credentials are deliberately not required: the server starts
	// without them and the audio endpoints stay unregistered.
	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}
