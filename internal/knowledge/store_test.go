package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	delay         time.Duration
	embedErr      error
	returnEmpty   bool
	embeddings    []float32
	callCount     int
	lastInputText string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInputText = req.Input[0].Content[0].Text
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}
	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: embeddings}}}, nil
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	upsertErr error
	searchErr error
	countErr  error
	deleteErr error
	listErr   error

	searchResults []Row
	countResult   int64
	deleteResult  int64
	listResult    []string

	upsertCalls []UpsertParams
	searchCalls []SearchParams
	deleteCalls []string
}

func (m *mockQuerier) UpsertDocument(ctx context.Context, arg UpsertParams) error {
	m.upsertCalls = append(m.upsertCalls, arg)
	return m.upsertErr
}

func (m *mockQuerier) SearchDocuments(ctx context.Context, arg SearchParams) ([]Row, error) {
	m.searchCalls = append(m.searchCalls, arg)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockQuerier) CountDocuments(ctx context.Context, source string) (int64, error) {
	return m.countResult, m.countErr
}

func (m *mockQuerier) DeleteBySource(ctx context.Context, source string) (int64, error) {
	m.deleteCalls = append(m.deleteCalls, source)
	return m.deleteResult, m.deleteErr
}

func (m *mockQuerier) ListSources(ctx context.Context) ([]string, error) {
	return m.listResult, m.listErr
}

func TestAdd(t *testing.T) {
	querier := &mockQuerier{}
	embedder := &mockEmbedder{}
	store := New(querier, embedder, nil)

	doc := Document{
		ID:      "doc-1",
		Content: "how to configure the vector index",
		Metadata: map[string]string{
			MetaSource:     "manual.txt",
			MetaChunkIndex: "0",
		},
	}
	if err := store.Add(context.Background(), doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if len(querier.upsertCalls) != 1 {
		t.Fatalf("upsert calls = %d, want 1", len(querier.upsertCalls))
	}
	got := querier.upsertCalls[0]
	if got.ID != "doc-1" {
		t.Errorf("upsert ID = %q, want %q", got.ID, "doc-1")
	}
	if got.Embedding == nil {
		t.Error("upsert embedding is nil")
	}
	if embedder.lastInputText != doc.Content {
		t.Errorf("embedded text = %q, want document content", embedder.lastInputText)
	}
}

func TestAddEmbedderError(t *testing.T) {
	embedErr := errors.New("quota exceeded")
	store := New(&mockQuerier{}, &mockEmbedder{embedErr: embedErr}, nil)

	err := store.Add(context.Background(), Document{ID: "doc-1", Content: "x"})
	if !errors.Is(err, embedErr) {
		t.Errorf("Add() error = %v, want wrapped %v", err, embedErr)
	}
}

func TestAddEmptyEmbedding(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, nil)

	if err := store.Add(context.Background(), Document{ID: "doc-1", Content: "x"}); err == nil {
		t.Error("Add() succeeded with empty embedding, want error")
	}
}

func TestAddBatchStopsAtFirstFailure(t *testing.T) {
	docs := []Document{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
		{ID: "c", Content: "three"},
	}
	// Fail on the second upsert.
	callCount := 0
	querier := &failingQuerier{mockQuerier: &mockQuerier{}, failOn: 2, calls: &callCount}
	store := New(querier, &mockEmbedder{}, nil)

	n, err := store.AddBatch(context.Background(), docs)
	if err == nil {
		t.Fatal("AddBatch() succeeded, want error on second document")
	}
	if n != 1 {
		t.Errorf("AddBatch() added = %d, want 1", n)
	}
}

type failingQuerier struct {
	*mockQuerier
	failOn int
	calls  *int
}

func (f *failingQuerier) UpsertDocument(ctx context.Context, arg UpsertParams) error {
	*f.calls++
	if *f.calls == f.failOn {
		return errors.New("disk full")
	}
	return f.mockQuerier.UpsertDocument(ctx, arg)
}

func TestSearch(t *testing.T) {
	querier := &mockQuerier{
		searchResults: []Row{
			{Document: Document{ID: "a", Content: "first"}, Similarity: 0.92},
			{Document: Document{ID: "b", Content: "second"}, Similarity: 0.71},
		},
	}
	store := New(querier, &mockEmbedder{}, nil)

	results, err := store.Search(context.Background(), "vector index", WithTopK(2))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not ordered by similarity")
	}
	if querier.searchCalls[0].Limit != 2 {
		t.Errorf("search limit = %d, want 2", querier.searchCalls[0].Limit)
	}
}

func TestSearchDefaults(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{}, nil)

	if _, err := store.Search(context.Background(), "q"); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := querier.searchCalls[0].Limit; got != 6 {
		t.Errorf("default topK = %d, want 6", got)
	}
	if got := querier.searchCalls[0].Source; got != "" {
		t.Errorf("default source filter = %q, want empty", got)
	}
}

func TestSearchSourceFilter(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, &mockEmbedder{}, nil)

	if _, err := store.Search(context.Background(), "q", WithSource("manual.txt")); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := querier.searchCalls[0].Source; got != "manual.txt" {
		t.Errorf("source filter = %q, want %q", got, "manual.txt")
	}
}

func TestSearchEmbeddingTimeout(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{delay: 200 * time.Millisecond}, nil)

	_, err := store.Search(context.Background(), "q", WithTimeout(10*time.Millisecond))
	if err == nil {
		t.Fatal("Search() succeeded despite embedder exceeding timeout")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() error = %v, want DeadlineExceeded", err)
	}
}

func TestCount(t *testing.T) {
	store := New(&mockQuerier{countResult: 42}, &mockEmbedder{}, nil)

	got, err := store.Count(context.Background(), "")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Count() = %d, want 42", got)
	}
}

func TestDeleteSource(t *testing.T) {
	querier := &mockQuerier{deleteResult: 7}
	store := New(querier, &mockEmbedder{}, nil)

	n, err := store.DeleteSource(context.Background(), "manual.txt")
	if err != nil {
		t.Fatalf("DeleteSource() error = %v", err)
	}
	if n != 7 {
		t.Errorf("DeleteSource() = %d, want 7", n)
	}
	if len(querier.deleteCalls) != 1 || querier.deleteCalls[0] != "manual.txt" {
		t.Errorf("delete calls = %v, want [manual.txt]", querier.deleteCalls)
	}
}

func TestDeleteSourceEmpty(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	if _, err := store.DeleteSource(context.Background(), ""); err == nil {
		t.Error("DeleteSource(\"\") succeeded, want error")
	}
}

func TestSources(t *testing.T) {
	store := New(&mockQuerier{listResult: []string{"b.pdf", "a.txt"}}, &mockEmbedder{}, nil)

	sources, err := store.Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Errorf("len(sources) = %d, want 2", len(sources))
	}
}
