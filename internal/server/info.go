package server

import (
	"net/http"

	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/rag"
	"github.com/docvoice/docvoice/internal/storage"
)

type infoHandler struct {
	store     DocumentStore
	objects   storage.ObjectStore
	audio     *audioHandler
	modelInfo rag.ModelInfo
	logger    log.Logger
}

// servicesInfo handles GET /services/info: a one-stop description of the
// configured pipeline for the frontend settings page.
func (h *infoHandler) servicesInfo(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Count(r.Context(), "")
	if err != nil {
		h.logger.Warn("counting documents for services info", "error", err)
		count = -1
	}
	sources, err := h.store.Sources(r.Context())
	if err != nil {
		h.logger.Warn("listing sources for services info", "error", err)
	}

	storageType := "none"
	storageStatus := "disabled"
	storageNote := "Documents are indexed but originals are not retained"
	if h.objects != nil {
		storageType = h.objects.Kind()
		storageStatus = "active"
		storageNote = "Original files retained in object storage"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"vector_store": map[string]any{
			"type":           "pgvector",
			"document_count": count,
			"source_count":   len(sources),
			"sources":        sources,
		},
		"storage": map[string]string{
			"type":   storageType,
			"status": storageStatus,
			"note":   storageNote,
		},
		"llm": h.modelInfo,
		"audio": map[string]any{
			"stt": engineInfo(h.audio.transcriber),
			"tts": engineInfo(h.audio.synthesizer),
		},
	}, h.logger)
}
