package server

import (
	"context"
	"net/http"
	"time"

	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/storage"
)

// healthCheckTimeout bounds the per-service probes in /health. The LLM check
// performs a real (tiny) generation, so this is deliberately generous.
const healthCheckTimeout = 20 * time.Second

type healthHandler struct {
	answerer Answerer
	store    DocumentStore
	db       Pinger
	objects  storage.ObjectStore
	audio    *audioHandler
	logger   log.Logger
}

// health handles GET /health: a deep check of every service. Object storage
// being down degrades the report but not the overall status.
func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	vectorOK := true
	if _, err := h.store.Count(ctx, ""); err != nil {
		h.logger.Warn("vector store health check failed", "error", err)
		vectorOK = false
	}

	llmOK := true
	if err := h.answerer.HealthCheck(ctx); err != nil {
		h.logger.Warn("llm health check failed", "error", err)
		llmOK = false
	}

	audioOK := h.audio.transcriber != nil && h.audio.synthesizer != nil

	storageOK := h.objects != nil
	storageNote := "Object storage disabled - documents are indexed only"
	if storageOK {
		storageNote = "Object storage active (" + h.objects.Kind() + ")"
	}

	coreHealthy := vectorOK && llmOK
	status := "healthy"
	code := http.StatusOK
	if !coreHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
		"status":    status,
		"services": map[string]bool{
			"vector_store": vectorOK,
			"llm":          llmOK,
			"stt":          audioOK,
			"tts":          audioOK,
			"storage":      storageOK,
		},
		"storage_note": storageNote,
	}, h.logger)
}

// ready handles GET /ready: a fast liveness probe against the database only.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, h.logger)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, h.logger)
}
