// Package server exposes the document and voice pipeline over HTTP: document
// upload, text queries, transcription, synthesis, and the combined
// voice-to-voice endpoint the voice client talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/document"
	"github.com/docvoice/docvoice/internal/knowledge"
	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/rag"
	"github.com/docvoice/docvoice/internal/speech"
	"github.com/docvoice/docvoice/internal/storage"
)

// DefaultAddr is the default listen address (localhost only).
const DefaultAddr = "127.0.0.1:3400"

// Server timeouts.
const (
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 120 * time.Second // voice-to-voice runs STT, LLM, and TTS in sequence
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

// Answerer produces grounded answers from the document store.
// Implemented by *rag.Answerer.
type Answerer interface {
	Answer(ctx context.Context, query string, includeSources bool) (*rag.Response, error)
	History(limit int) []rag.Exchange
	ClearHistory()
	HealthCheck(ctx context.Context) error
}

// DocumentStore is the slice of *knowledge.Store the handlers use.
type DocumentStore interface {
	AddBatch(ctx context.Context, docs []knowledge.Document) (int, error)
	Count(ctx context.Context, source string) (int, error)
	Sources(ctx context.Context) ([]string, error)
	DeleteSource(ctx context.Context, source string) (int64, error)
}

// Pinger reports database connectivity for readiness probes.
// Implemented by *knowledge.PostgresQuerier.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig contains configuration for creating the HTTP server.
type ServerConfig struct {
	Logger      log.Logger
	Answerer    Answerer            // Required
	Store       DocumentStore       // Required
	DB          Pinger              // Optional: nil skips the DB readiness check
	Objects     storage.ObjectStore // Optional: nil disables original-file retention
	Transcriber speech.Transcriber  // Optional: nil disables audio endpoints
	Synthesizer speech.Synthesizer  // Optional: nil disables audio endpoints
	Splitter    *document.Splitter  // Required for uploads
	Speech      config.SpeechConfig
	ModelInfo   rag.ModelInfo // Shown by /services/info and /audio/info
	CORSOrigins []string
	TrustProxy  bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int  // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	splitter := cfg.Splitter
	if splitter == nil {
		splitter = document.NewSplitter(0, 0)
	}

	mux := http.NewServeMux()

	dh := &documentHandler{
		store:    cfg.Store,
		objects:  cfg.Objects,
		splitter: splitter,
		logger:   logger,
	}
	mux.HandleFunc("POST /upload", dh.upload)
	mux.HandleFunc("GET /documents", dh.listSources)
	mux.HandleFunc("DELETE /documents/{source}", dh.deleteSource)

	qh := &queryHandler{answerer: cfg.Answerer, logger: logger}
	mux.HandleFunc("POST /query", qh.query)
	mux.HandleFunc("GET /query/history", qh.history)
	mux.HandleFunc("DELETE /query/history", qh.clearHistory)

	// Audio endpoints are only registered when both engines are configured;
	// /audio/info stays available so clients can discover they are off.
	ah := &audioHandler{
		transcriber: cfg.Transcriber,
		synthesizer: cfg.Synthesizer,
		answerer:    cfg.Answerer,
		speech:      cfg.Speech,
		logger:      logger,
	}
	if cfg.Transcriber != nil && cfg.Synthesizer != nil {
		mux.HandleFunc("POST /audio/transcribe", ah.transcribe)
		mux.HandleFunc("POST /audio/synthesize", ah.synthesize)
		mux.HandleFunc("POST /audio/voice-to-voice", ah.voiceToVoice)
	}
	mux.HandleFunc("GET /audio/info", ah.info)
	mux.HandleFunc("GET /tts/languages", ah.languages)

	ih := &infoHandler{
		store:     cfg.Store,
		objects:   cfg.Objects,
		audio:     ah,
		modelInfo: cfg.ModelInfo,
		logger:    logger,
	}
	mux.HandleFunc("GET /services/info", ih.servicesInfo)

	// Unknown routes get the JSON error envelope, not the text/plain default.
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found", logger)
	})

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux separates health probes from the middleware stack.
	hh := &healthHandler{
		answerer: cfg.Answerer,
		store:    cfg.Store,
		db:       cfg.DB,
		objects:  cfg.Objects,
		audio:    ah,
		logger:   logger,
	}
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.health)
	topMux.HandleFunc("GET /ready", hh.ready)
	topMux.Handle("/", final)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully within ShutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
