package knowledge

import "time"

// Document is one stored chunk of an uploaded source document.
type Document struct {
	ID        string            // Unique identifier (uuid)
	Content   string            // Chunk text
	Metadata  map[string]string // source, chunk_index, content_type, ...
	CreatedAt time.Time
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity (0-1)
}

// Metadata keys written by the ingestion pipeline.
const (
	MetaSource      = "source"
	MetaChunkIndex  = "chunk_index"
	MetaContentType = "content_type"
)

// SearchOption configures a similarity search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	source  string
	timeout time.Duration
}

// WithTopK sets the maximum number of results. Default is 6.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithSource restricts results to chunks from one uploaded file.
func WithSource(source string) SearchOption {
	return func(c *searchConfig) {
		c.source = source
	}
}

// WithTimeout caps the search duration (embedding plus query). Default 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    6,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
