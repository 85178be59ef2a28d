package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/docvoice/docvoice/internal/document"
	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/storage"
)

// maxUploadBytes caps document uploads at 16 MiB.
const maxUploadBytes = 16 << 20

type documentHandler struct {
	store    DocumentStore
	objects  storage.ObjectStore
	splitter *document.Splitter
	logger   log.Logger
}

// upload handles POST /upload: extract text, chunk, embed, index, and keep
// the original file in object storage when it is configured.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided", h.logger)
		return
	}
	defer func() { _ = file.Close() }()

	filename := header.Filename
	if filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected", h.logger)
		return
	}
	if !document.Supported(filename) {
		exts := supportedExtensions()
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Only %s files are supported", strings.Join(exts, ", ")), h.logger)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading upload", "error", err, "filename", filename)
		writeError(w, http.StatusInternalServerError, "Failed to read uploaded file", h.logger)
		return
	}

	text, err := document.ExtractText(filename, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, document.ErrEmptyDocument) {
			writeError(w, http.StatusBadRequest, "Document contains no extractable text", h.logger)
			return
		}
		h.logger.Error("extracting text", "error", err, "filename", filename)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to process document: %v", err), h.logger)
		return
	}

	chunks, err := h.splitter.Split(text)
	if err != nil {
		h.logger.Error("splitting document", "error", err, "filename", filename)
		writeError(w, http.StatusInternalServerError, "Failed to split document", h.logger)
		return
	}

	contentType := header.Header.Get("Content-Type")
	docs := document.BuildChunks(filename, contentType, chunks)

	added, err := h.store.AddBatch(r.Context(), docs)
	if err != nil {
		h.logger.Error("indexing document", "error", err, "filename", filename, "added", added)
		writeError(w, http.StatusInternalServerError, "Failed to add documents to vector store", h.logger)
		return
	}

	// Object storage is best effort: an unreachable bucket degrades to
	// index-only, it never fails the upload.
	storageInfo := map[string]any{
		"success": true,
		"storage": "none",
		"message": "File processed successfully",
	}
	if h.objects != nil {
		location, saveErr := h.objects.Save(r.Context(), filename, bytes.NewReader(data), int64(len(data)), contentType)
		if saveErr != nil {
			h.logger.Warn("object storage save failed", "error", saveErr, "filename", filename)
			storageInfo["storage"] = "none"
			storageInfo["storage_error"] = saveErr.Error()
		} else {
			storageInfo["storage"] = h.objects.Kind()
			storageInfo["location"] = location
		}
	}

	h.logger.Info("document uploaded", "filename", filename, "chunks", added)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"message":          "File uploaded and processed successfully",
		"filename":         filename,
		"chunks_processed": added,
		"storage_info":     storageInfo,
	}, h.logger)
}

// listSources handles GET /documents.
func (h *documentHandler) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.Sources(r.Context())
	if err != nil {
		h.logger.Error("listing sources", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sources": sources,
		"count":   len(sources),
	}, h.logger)
}

// deleteSource handles DELETE /documents/{source}: removes every chunk
// indexed from that source file.
func (h *documentHandler) deleteSource(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	deleted, err := h.store.DeleteSource(r.Context(), source)
	if err != nil {
		h.logger.Error("deleting source", "error", err, "source", source)
		writeError(w, http.StatusInternalServerError, "Failed to delete document", h.logger)
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "Document not found", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"source":  source,
		"deleted": deleted,
	}, h.logger)
}

// supportedExtensions returns the accepted document extensions in a stable
// order for error messages.
func supportedExtensions() []string {
	exts := make([]string, 0, len(document.AllowedExtensions))
	for ext := range document.AllowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
