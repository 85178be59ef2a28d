package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/rag"
	"github.com/docvoice/docvoice/internal/speech"
)

type audioHandler struct {
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	answerer    Answerer
	speech      config.SpeechConfig
	logger      log.Logger
}

// engineInfoProvider is implemented by the concrete STT/TTS engines.
type engineInfoProvider interface {
	Info() speech.EngineInfo
}

func (h *audioHandler) maxAudioBytes() int64 {
	if h.speech.MaxAudioBytes > 0 {
		return h.speech.MaxAudioBytes
	}
	return config.DefaultMaxAudioBytes
}

func (h *audioHandler) defaultLanguage() string {
	if h.speech.DefaultLanguage != "" {
		return h.speech.DefaultLanguage
	}
	return "en"
}

// readAudioFile validates and returns the "audio" multipart field. On
// failure it writes the error response and returns ok=false.
func (h *audioHandler) readAudioFile(w http.ResponseWriter, r *http.Request) (data []byte, filename string, ok bool) {
	maxBytes := h.maxAudioBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Audio file too large. Maximum size: %dMB", maxBytes/(1<<20)), h.logger)
		return nil, "", false
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided", h.logger)
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	filename = header.Filename
	if filename == "" {
		writeError(w, http.StatusBadRequest, "No audio file selected", h.logger)
		return nil, "", false
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if !config.AudioExtensionAllowed(ext) {
		writeError(w, http.StatusBadRequest,
			"Unsupported audio format. Supported: "+strings.Join(audioFormats(), ", "), h.logger)
		return nil, "", false
	}

	if header.Size > maxBytes {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Audio file too large. Maximum size: %dMB", maxBytes/(1<<20)), h.logger)
		return nil, "", false
	}

	body, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading audio upload", "error", err, "filename", filename)
		writeError(w, http.StatusInternalServerError, "Failed to read audio file", h.logger)
		return nil, "", false
	}

	return body, filename, true
}

// transcribe handles POST /audio/transcribe.
func (h *audioHandler) transcribe(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readAudioFile(w, r)
	if !ok {
		return
	}
	language := r.FormValue("language")

	result, err := h.transcriber.Transcribe(r.Context(), filename, bytes.NewReader(data), language)
	if err != nil {
		h.logger.Error("transcribing audio", "error", err, "filename", filename)
		writeError(w, http.StatusInternalServerError, "Transcription failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"transcription": result.Text,
		"language":      result.Language,
		"duration":      result.Duration,
		"segments":      result.Segments,
	}, h.logger)
}

// synthesizeRequest is the request body for POST /audio/synthesize.
type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Format   string `json:"format"` // "base64" (default) or "file"
}

// synthesize handles POST /audio/synthesize.
func (h *audioHandler) synthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No text provided", h.logger)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text cannot be empty", h.logger)
		return
	}

	language := req.Language
	if language == "" {
		language = h.defaultLanguage()
	}
	if !config.TTSLanguageSupported(language) {
		writeError(w, http.StatusBadRequest, "Unsupported language: "+language, h.logger)
		return
	}

	format := req.Format
	if format == "" {
		format = "base64"
	}
	if format != "base64" && format != "file" {
		writeError(w, http.StatusBadRequest, `Invalid format. Use "base64" or "file"`, h.logger)
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text, language)
	if err != nil {
		h.logger.Error("synthesizing speech", "error", err, "language", language)
		writeError(w, http.StatusInternalServerError, "Speech synthesis failed", h.logger)
		return
	}

	if format == "file" {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="speech_%d.mp3"`, time.Now().Unix()))
		if _, err := w.Write(audio); err != nil {
			h.logger.Debug("writing audio response", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"audio_data": base64.StdEncoding.EncodeToString(audio),
		"format":     "base64",
		"text":       req.Text,
		"language":   language,
	}, h.logger)
}

// voiceToVoice handles POST /audio/voice-to-voice: the full pipeline of
// transcription, document-grounded answering, and reply synthesis.
func (h *audioHandler) voiceToVoice(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := h.readAudioFile(w, r)
	if !ok {
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = h.defaultLanguage()
	}
	if !config.TTSLanguageSupported(language) {
		writeError(w, http.StatusBadRequest, "Unsupported language: "+language, h.logger)
		return
	}
	includeSources := true
	if raw := r.FormValue("include_sources"); raw != "" {
		includeSources = strings.EqualFold(raw, "true")
	}

	pipelineStart := time.Now()

	transcription, err := h.transcriber.Transcribe(r.Context(), filename, bytes.NewReader(data), "")
	if err != nil {
		h.logger.Error("voice pipeline transcription failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Voice-to-voice pipeline failed: transcription error", h.logger)
		return
	}
	transcriptionTime := time.Since(pipelineStart).Seconds()

	userText := strings.TrimSpace(transcription.Text)
	if userText == "" {
		writeError(w, http.StatusBadRequest, "No speech detected in audio", h.logger)
		return
	}

	llmStart := time.Now()
	answer, err := h.answerer.Answer(r.Context(), userText, includeSources)
	if err != nil {
		h.logger.Error("voice pipeline answering failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Voice-to-voice pipeline failed: answer error", h.logger)
		return
	}
	llmTime := time.Since(llmStart).Seconds()

	replyAudio, err := h.synthesizer.Synthesize(r.Context(), answer.Answer, language)
	if err != nil {
		h.logger.Error("voice pipeline synthesis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Voice-to-voice pipeline failed: synthesis error", h.logger)
		return
	}

	sources := []rag.Source{}
	if includeSources && answer.Sources != nil {
		sources = answer.Sources
	}

	h.logger.Info("voice-to-voice pipeline complete",
		"transcription_language", transcription.Language,
		"question_length", len(userText),
		"total", time.Since(pipelineStart).Seconds())

	writeJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"user_speech":            userText,
		"ai_response_text":       answer.Answer,
		"ai_response_audio":      base64.StdEncoding.EncodeToString(replyAudio),
		"transcription_language": transcription.Language,
		"output_language":        language,
		"processing_time": map[string]float64{
			"transcription":  transcriptionTime,
			"llm_response":   llmTime,
			"total_pipeline": time.Since(pipelineStart).Seconds(),
		},
		"sources": sources,
	}, h.logger)
}

// info handles GET /audio/info.
func (h *audioHandler) info(w http.ResponseWriter, _ *http.Request) {
	maxBytes := h.maxAudioBytes()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":                 true,
		"enabled":                 h.transcriber != nil && h.synthesizer != nil,
		"stt":                     engineInfo(h.transcriber),
		"tts":                     engineInfo(h.synthesizer),
		"supported_audio_formats": audioFormats(),
		"max_file_size":           maxBytes,
		"max_file_size_mb":        float64(maxBytes) / (1 << 20),
	}, h.logger)
}

// languages handles GET /tts/languages.
func (h *audioHandler) languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"languages":        config.TTSLanguages,
		"default_language": h.defaultLanguage(),
	}, h.logger)
}

// engineInfo reports a configured engine's description, or an empty struct
// when the engine is absent or anonymous.
func engineInfo(engine any) speech.EngineInfo {
	if p, ok := engine.(engineInfoProvider); ok {
		return p.Info()
	}
	return speech.EngineInfo{}
}

// audioFormats returns the accepted audio extensions in a stable order.
func audioFormats() []string {
	formats := make([]string, 0, len(config.AllowedAudioExtensions))
	for ext := range config.AllowedAudioExtensions {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}
