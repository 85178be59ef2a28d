// Package document turns uploaded files into embeddable chunks: text
// extraction, splitting, and chunk metadata.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType is returned for file types the extractor cannot read.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrEmptyDocument is returned when extraction yields no usable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// AllowedExtensions lists the upload types accepted for indexing.
var AllowedExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
	".pdf": {},
}

// Supported reports whether the filename has an indexable extension.
func Supported(filename string) bool {
	_, ok := AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ExtractText reads the document body and returns its plain text.
// The whole file is buffered; upload size limits are enforced by the caller.
func ExtractText(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filename, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
		}
		return text, nil

	case ".pdf":
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filename, err)
		}
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("extracting text from %s: %w", filename, err)
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
		}
		return text, nil

	default:
		return "", fmt.Errorf("%w: %q (accepted: .txt, .md, .pdf)", ErrUnsupportedType, ext)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the whole document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
