//go:build integration
// +build integration

package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvoice/docvoice/internal/testutil"
)

func setupIntegrationStore(t *testing.T) (*Store, func()) {
	t.Helper()

	db, dbCleanup := testutil.SetupTestDB(t)
	setup := testutil.SetupEmbedder(t)
	store := New(NewPostgresQuerier(db.Pool), setup.Embedder, setup.Logger)

	return store, dbCleanup
}

func TestStoreRoundTripIntegration(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()

	doc := Document{
		ID:      "it-doc-1",
		Content: "Go is a statically typed, compiled programming language designed at Google.",
		Metadata: map[string]string{
			MetaSource:     "go.txt",
			MetaChunkIndex: "0",
		},
	}
	require.NoError(t, store.Add(ctx, doc))

	results, err := store.Search(ctx, "Go programming language", WithTopK(1))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 1)
	assert.Equal(t, doc.ID, results[0].Document.ID)
	assert.Equal(t, doc.Content, results[0].Document.Content)
	assert.Greater(t, results[0].Similarity, float32(0.5))
}

func TestStoreSourceLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()

	docs := []Document{
		{ID: "a-0", Content: "Chapter one of the manual.", Metadata: map[string]string{MetaSource: "manual.txt", MetaChunkIndex: "0"}},
		{ID: "a-1", Content: "Chapter two of the manual.", Metadata: map[string]string{MetaSource: "manual.txt", MetaChunkIndex: "1"}},
		{ID: "b-0", Content: "Unrelated notes.", Metadata: map[string]string{MetaSource: "notes.txt", MetaChunkIndex: "0"}},
	}
	n, err := store.AddBatch(ctx, docs)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	count, err := store.Count(ctx, "manual.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	deleted, err := store.DeleteSource(ctx, "manual.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	total, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
