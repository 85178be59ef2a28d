// Package knowledge stores document chunks with vector embeddings and serves
// similarity search over them (PostgreSQL + pgvector).
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/docvoice/docvoice/internal/log"
)

// UpsertParams carries one chunk into the documents table.
type UpsertParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  map[string]string
}

// SearchParams is a vector similarity query. Source, when non-empty,
// restricts hits to chunks whose metadata source matches.
type SearchParams struct {
	QueryEmbedding *pgvector.Vector
	Source         string
	Limit          int
}

// Row is one chunk as returned from the database.
type Row struct {
	Document
	Similarity float32
}

// Querier is the database surface Store needs. Defined here, on the consumer
// side, so tests can substitute a mock and production can use the pgx
// implementation in postgres.go.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertParams) error
	SearchDocuments(ctx context.Context, arg SearchParams) ([]Row, error)
	CountDocuments(ctx context.Context, source string) (int64, error)
	DeleteBySource(ctx context.Context, source string) (int64, error)
	ListSources(ctx context.Context) ([]string, error)
}

// Store manages document chunks with vector search.
// Safe for concurrent use.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. logger may be nil.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds the document content and upserts it.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	if err := s.queries.UpsertDocument(ctx, UpsertParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  doc.Metadata,
	}); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// AddBatch adds documents one at a time, stopping at the first failure so the
// caller knows how far ingestion got.
func (s *Store) AddBatch(ctx context.Context, docs []Document) (int, error) {
	for i, doc := range docs {
		if err := s.Add(ctx, doc); err != nil {
			return i, err
		}
	}
	return len(docs), nil
}

// Search embeds the query and returns the most similar chunks, ordered by
// similarity. A timeout bounds the whole operation (see WithTimeout).
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchParams{
		QueryEmbedding: embedding,
		Source:         cfg.source,
		Limit:          cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{Document: row.Document, Similarity: row.Similarity})
	}
	return results, nil
}

// Count returns the number of stored chunks, optionally for one source file.
// Empty source counts everything.
func (s *Store) Count(ctx context.Context, source string) (int, error) {
	count, err := s.queries.CountDocuments(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	// Overflow guard for 32-bit platforms.
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// DeleteSource removes every chunk belonging to one uploaded file and
// returns how many were deleted.
func (s *Store) DeleteSource(ctx context.Context, source string) (int64, error) {
	if source == "" {
		return 0, fmt.Errorf("source must not be empty")
	}
	n, err := s.queries.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("deleting source %q: %w", source, err)
	}
	s.logger.Debug("deleted source", "source", source, "chunks", n)
	return n, nil
}

// Sources lists the distinct uploaded files currently indexed.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	sources, err := s.queries.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	return sources, nil
}

func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}
