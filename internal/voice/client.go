// Package voice drives the two-phase voice conversation: capture user
// speech, submit it to the voice-to-voice endpoint, render the reply.
package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/docvoice/docvoice/internal/log"
)

// DefaultTimeout bounds one voice exchange round trip. Expiry is a
// submission failure; there are no automatic retries.
const DefaultTimeout = 60 * time.Second

// ServerError is a non-success response carrying the server's message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// ProcessingTime is the server's per-phase timing breakdown, in seconds.
type ProcessingTime struct {
	Transcription float64 `json:"transcription"`
	LLMResponse   float64 `json:"llm_response"`
	TotalPipeline float64 `json:"total_pipeline"`
}

// Source is one cited document chunk.
type Source struct {
	ID         int               `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	FullLength int               `json:"full_length"`
}

// ExchangeResult is one completed voice exchange. Created on receipt of the
// server response, rendered once, not persisted.
type ExchangeResult struct {
	Success               bool           `json:"success"`
	UserSpeech            string         `json:"user_speech"`
	AIResponseText        string         `json:"ai_response_text"`
	AIResponseAudio       string         `json:"ai_response_audio"` // base64 MP3, may be empty
	TranscriptionLanguage string         `json:"transcription_language"`
	OutputLanguage        string         `json:"output_language"`
	ProcessingTime        ProcessingTime `json:"processing_time"`
	Sources               []Source       `json:"sources"`
}

// DecodeAudio returns the assistant's reply audio bytes, or nil when the
// server sent none.
func (r *ExchangeResult) DecodeAudio() ([]byte, error) {
	if r.AIResponseAudio == "" {
		return nil, nil
	}
	audio, err := base64.StdEncoding.DecodeString(r.AIResponseAudio)
	if err != nil {
		return nil, fmt.Errorf("decoding response audio: %w", err)
	}
	return audio, nil
}

// Client submits recordings to the voice-to-voice endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a Client. httpClient may be nil for a default with
// DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client, logger log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Exchange posts the recording with its language hint and source preference.
// Non-success responses come back as *ServerError carrying the server's
// message when it sent one.
func (c *Client) Exchange(ctx context.Context, audio []byte, filename, language string, includeSources bool) (*ExchangeResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("writing audio field: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("writing language field: %w", err)
	}
	if err := writer.WriteField("include_sources", strconv.FormatBool(includeSources)); err != nil {
		return nil, fmt.Errorf("writing include_sources field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/voice-to-voice", &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting voice exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(respBody),
		}
	}

	var result ExchangeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	c.logger.Info("voice exchange complete",
		"elapsed", time.Since(start).Seconds(),
		"transcription_language", result.TranscriptionLanguage,
		"sources", len(result.Sources))

	return &result, nil
}

// serverMessage extracts the error field from a non-success body, falling
// back to a generic message.
func serverMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "voice processing failed"
}
