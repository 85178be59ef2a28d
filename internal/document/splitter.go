package document

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/docvoice/docvoice/internal/knowledge"
)

// Splitter chunks extracted text for embedding.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter creates a Splitter. Chunk size and overlap come from config;
// defaults are 1000/200 characters.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split divides text into overlapping chunks, preferring paragraph and
// sentence boundaries over hard cuts.
func (s *Splitter) Split(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}

// BuildChunks wraps split text into store documents, stamping each chunk with
// its source filename and position.
func BuildChunks(source, contentType string, chunks []string) []knowledge.Document {
	docs := make([]knowledge.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, knowledge.Document{
			ID:      uuid.NewString(),
			Content: chunk,
			Metadata: map[string]string{
				knowledge.MetaSource:      source,
				knowledge.MetaChunkIndex:  strconv.Itoa(i),
				knowledge.MetaContentType: contentType,
			},
		})
	}
	return docs
}
