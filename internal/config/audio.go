package config

// DefaultMaxAudioBytes caps uploaded audio at 16 MiB, matching the upload
// limit advertised by /audio/info.
const DefaultMaxAudioBytes = 16 * 1024 * 1024

// SpeechConfig holds STT/TTS engine configuration.
//
// The Whisper STT and TTS engines speak the OpenAI-compatible audio API, so
// BaseURL may point at any compatible host (api.openai.com, a Groq
// deployment, or a self-hosted whisper server).
type SpeechConfig struct {
	STTEngine       string `mapstructure:"stt_engine" json:"stt_engine"` // "whisper"
	STTModel        string `mapstructure:"stt_model" json:"stt_model"`
	TTSModel        string `mapstructure:"tts_model" json:"tts_model"`
	TTSVoice        string `mapstructure:"tts_voice" json:"tts_voice"`
	DefaultLanguage string `mapstructure:"default_language" json:"default_language"`
	MaxAudioBytes   int64  `mapstructure:"max_audio_bytes" json:"max_audio_bytes"`
	APIKey          string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	BaseURL         string `mapstructure:"base_url" json:"base_url"`
}

// AllowedAudioExtensions lists the audio container formats accepted by the
// transcription endpoints (without the leading dot).
var AllowedAudioExtensions = map[string]struct{}{
	"wav":  {},
	"mp3":  {},
	"flac": {},
	"m4a":  {},
	"ogg":  {},
	"webm": {},
}

// TTSLanguages maps the supported synthesis language tags to display names.
var TTSLanguages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese (Mandarin)",
	"ar": "Arabic",
	"hi": "Hindi",
	"nl": "Dutch",
	"sv": "Swedish",
	"no": "Norwegian",
}

// AudioExtensionAllowed reports whether the given extension (without dot,
// any case handled by the caller) is an accepted audio container.
func AudioExtensionAllowed(ext string) bool {
	_, ok := AllowedAudioExtensions[ext]
	return ok
}

// TTSLanguageSupported reports whether the language tag has a synthesis voice.
func TTSLanguageSupported(lang string) bool {
	_, ok := TTSLanguages[lang]
	return ok
}
