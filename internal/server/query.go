package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/rag"
)

type queryHandler struct {
	answerer Answerer
	logger   log.Logger
}

type queryRequest struct {
	Question       string `json:"question"`
	IncludeSources *bool  `json:"include_sources"`
}

type queryResponse struct {
	Success bool `json:"success"`
	*rag.Response
}

// query handles POST /query: answer a text question from the indexed
// documents.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No question provided", h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question cannot be empty", h.logger)
		return
	}

	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}

	resp, err := h.answerer.Answer(r.Context(), req.Question, includeSources)
	if err != nil {
		h.logger.Error("answering query", "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Success: true, Response: resp}, h.logger)
}

// history handles GET /query/history?limit=N.
func (h *queryHandler) history(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", h.logger)
			return
		}
		limit = n
	}

	history := h.answerer.History(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": history,
		"count":   len(history),
	}, h.logger)
}

// clearHistory handles DELETE /query/history.
func (h *queryHandler) clearHistory(w http.ResponseWriter, _ *http.Request) {
	h.answerer.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Conversation history cleared",
	}, h.logger)
}
