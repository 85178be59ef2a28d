package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresQuerier implements Querier on a pgx connection pool against the
// documents table (db/migrations).
type PostgresQuerier struct {
	pool *pgxpool.Pool
}

// NewPostgresQuerier wraps the pool. The pool's lifecycle stays with the caller.
func NewPostgresQuerier(pool *pgxpool.Pool) *PostgresQuerier {
	return &PostgresQuerier{pool: pool}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// UpsertDocument inserts or replaces one chunk.
func (q *PostgresQuerier) UpsertDocument(ctx context.Context, arg UpsertParams) error {
	metadataJSON, err := json.Marshal(arg.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	_, err = q.pool.Exec(ctx, upsertDocumentSQL, arg.ID, arg.Content, arg.Embedding, metadataJSON)
	if err != nil {
		return fmt.Errorf("executing upsert: %w", err)
	}
	return nil
}

// 1 - cosine distance gives a similarity in [0,1] for normalized embeddings.
const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE $2 = '' OR metadata->>'source' = $2
ORDER BY embedding <=> $1
LIMIT $3`

// SearchDocuments runs the vector similarity query.
func (q *PostgresQuerier) SearchDocuments(ctx context.Context, arg SearchParams) ([]Row, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, arg.Source, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r            Row
			metadataJSON []byte
			createdAt    pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &r.Content, &metadataJSON, &createdAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			r.Metadata = map[string]string{}
		}
		if createdAt.Valid {
			r.CreatedAt = createdAt.Time
		} else {
			r.CreatedAt = time.Time{}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}
	return out, nil
}

// CountDocuments counts chunks, optionally for one source.
func (q *PostgresQuerier) CountDocuments(ctx context.Context, source string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE $1 = '' OR metadata->>'source' = $1`,
		source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("executing count: %w", err)
	}
	return count, nil
}

// DeleteBySource removes all chunks of one uploaded file.
func (q *PostgresQuerier) DeleteBySource(ctx context.Context, source string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM documents WHERE metadata->>'source' = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("executing delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListSources returns the distinct source filenames, newest first.
func (q *PostgresQuerier) ListSources(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT metadata->>'source'
		FROM documents
		WHERE metadata->>'source' IS NOT NULL
		GROUP BY metadata->>'source'
		ORDER BY max(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("executing list: %w", err)
	}
	defer rows.Close()

	sources, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting sources: %w", err)
	}
	return sources, nil
}

// Ping verifies the database connection, used by health checks.
func (q *PostgresQuerier) Ping(ctx context.Context) error {
	return q.pool.Ping(ctx)
}
