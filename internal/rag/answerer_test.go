package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docvoice/docvoice/internal/knowledge"
)

type mockGenerator struct {
	response string
	err      error
	prompts  []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockSearcher struct {
	count     int
	countErr  error
	results   []knowledge.Result
	searchErr error
}

func (m *mockSearcher) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	return m.results, m.searchErr
}

func (m *mockSearcher) Count(ctx context.Context, source string) (int, error) {
	return m.count, m.countErr
}

func chunk(id, content string) knowledge.Result {
	return knowledge.Result{
		Document: knowledge.Document{
			ID:      id,
			Content: content,
			Metadata: map[string]string{
				knowledge.MetaSource: "manual.txt",
			},
		},
		Similarity: 0.9,
	}
}

func TestAnswerNoDocuments(t *testing.T) {
	gen := &mockGenerator{response: "should not be called"}
	a := New(gen, &mockSearcher{count: 0}, 6, nil)

	resp, err := a.Answer(context.Background(), "what is this", true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != answerNoDocuments {
		t.Errorf("Answer = %q, want canned no-documents answer", resp.Answer)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator was called despite empty knowledge base")
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty non-nil slice", resp.Sources)
	}
}

func TestAnswerNoMatches(t *testing.T) {
	gen := &mockGenerator{response: "should not be called"}
	a := New(gen, &mockSearcher{count: 5, results: nil}, 6, nil)

	resp, err := a.Answer(context.Background(), "unrelated question", true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != answerNotInDocuments {
		t.Errorf("Answer = %q, want canned not-in-documents answer", resp.Answer)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator was called despite no search hits")
	}
}

func TestAnswerIncludesDocumentsInPrompt(t *testing.T) {
	gen := &mockGenerator{response: "The index uses HNSW."}
	searcher := &mockSearcher{
		count: 2,
		results: []knowledge.Result{
			chunk("a", "The vector index is HNSW with cosine distance."),
			chunk("b", "Chunks are 1000 characters with 200 overlap."),
		},
	}
	a := New(gen, searcher, 6, nil)

	resp, err := a.Answer(context.Background(), "what index is used", true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != "The index uses HNSW." {
		t.Errorf("Answer = %q", resp.Answer)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "Document 1:") || !strings.Contains(prompt, "Document 2:") {
		t.Error("prompt missing numbered document sections")
	}
	if !strings.Contains(prompt, "HNSW with cosine distance") {
		t.Error("prompt missing retrieved content")
	}
	if !strings.Contains(prompt, "what index is used") {
		t.Error("prompt missing the question")
	}
	if !strings.Contains(prompt, "ONLY") {
		t.Error("prompt missing strict document-only instruction")
	}
}

func TestAnswerGenericResponseGuard(t *testing.T) {
	gen := &mockGenerator{response: "I'm not sure, but typically indexes are B-trees."}
	searcher := &mockSearcher{count: 1, results: []knowledge.Result{chunk("a", "content")}}
	a := New(gen, searcher, 6, nil)

	resp, err := a.Answer(context.Background(), "q", false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != answerGenericFallback {
		t.Errorf("Answer = %q, want generic fallback", resp.Answer)
	}
}

func TestAnswerSourcePreviews(t *testing.T) {
	long := strings.Repeat("x", 450)
	gen := &mockGenerator{response: "answer"}
	searcher := &mockSearcher{count: 1, results: []knowledge.Result{chunk("a", long)}}
	a := New(gen, searcher, 6, nil)

	resp, err := a.Answer(context.Background(), "q", true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("len(Sources) = %d, want 1", len(resp.Sources))
	}
	src := resp.Sources[0]
	if len(src.Content) != sourcePreviewLength+3 {
		t.Errorf("preview length = %d, want %d", len(src.Content), sourcePreviewLength+3)
	}
	if !strings.HasSuffix(src.Content, "...") {
		t.Error("truncated preview missing ellipsis")
	}
	if src.FullLength != 450 {
		t.Errorf("FullLength = %d, want 450", src.FullLength)
	}
	if src.ID != 1 {
		t.Errorf("ID = %d, want 1", src.ID)
	}
}

func TestAnswerSourcesExcluded(t *testing.T) {
	gen := &mockGenerator{response: "answer"}
	searcher := &mockSearcher{count: 1, results: []knowledge.Result{chunk("a", "content")}}
	a := New(gen, searcher, 6, nil)

	resp, err := a.Answer(context.Background(), "q", false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("len(Sources) = %d, want 0 when excluded", len(resp.Sources))
	}
}

func TestAnswerGeneratorError(t *testing.T) {
	genErr := errors.New("model unavailable")
	gen := &mockGenerator{err: genErr}
	searcher := &mockSearcher{count: 1, results: []knowledge.Result{chunk("a", "content")}}
	a := New(gen, searcher, 6, nil)

	if _, err := a.Answer(context.Background(), "q", false); !errors.Is(err, genErr) {
		t.Errorf("Answer() error = %v, want wrapped %v", err, genErr)
	}
}

func TestHistoryBounded(t *testing.T) {
	gen := &mockGenerator{response: "answer"}
	searcher := &mockSearcher{count: 1, results: []knowledge.Result{chunk("a", "content")}}
	a := New(gen, searcher, 6, nil)

	for range 25 {
		if _, err := a.Answer(context.Background(), "q", false); err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
	}

	if got := len(a.History(0)); got != historyLimit {
		t.Errorf("history length = %d, want %d", got, historyLimit)
	}
	if got := len(a.History(5)); got != 5 {
		t.Errorf("History(5) length = %d, want 5", got)
	}

	a.ClearHistory()
	if got := len(a.History(0)); got != 0 {
		t.Errorf("history length after clear = %d, want 0", got)
	}
}

func TestIsGenericResponse(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"The manual says the index is HNSW.", false},
		{"I don't know the answer to that.", true},
		{"Usually this is configured via YAML.", true},
		{"Based on my knowledge of databases...", true},
	}
	for _, tt := range tests {
		if got := isGenericResponse(tt.answer); got != tt.want {
			t.Errorf("isGenericResponse(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestGenkitGeneratorInfo(t *testing.T) {
	gg := NewGenkitGenerator(nil, "googleai/gemini-2.5-flash", 0.1, 1024)

	info := gg.Info(6)
	if info.Provider != "googleai" {
		t.Errorf("Provider = %q, want %q", info.Provider, "googleai")
	}
	if info.ModelName != "gemini-2.5-flash" {
		t.Errorf("ModelName = %q, want %q", info.ModelName, "gemini-2.5-flash")
	}
	if info.RetrieverK != 6 || !info.StrictMode {
		t.Errorf("RetrieverK = %d, StrictMode = %v", info.RetrieverK, info.StrictMode)
	}
}
