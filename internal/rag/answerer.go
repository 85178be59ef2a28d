// Package rag answers questions strictly from indexed document content.
//
// The answering pipeline: count check, similarity search, strict
// document-only prompt, generic-response guard, source attribution.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docvoice/docvoice/internal/knowledge"
	"github.com/docvoice/docvoice/internal/log"
)

// Canned answers for the cases where generation would only hallucinate.
const (
	answerNoDocuments = "No documents have been uploaded yet. Please upload documents first to get answers about their content."

	answerNotInDocuments = "This information is not available in the uploaded documents. The question may not be related to the uploaded content."

	answerGenericFallback = "This information is not available in the uploaded documents. Please ensure your question relates to the uploaded content."
)

// sourcePreviewLength caps how much of each chunk appears in the sources list.
const sourcePreviewLength = 200

// historyLimit bounds the in-memory conversation history.
const historyLimit = 20

// Generator produces a completion for a prompt. Implemented by
// GenkitGenerator in production and by mocks in tests.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher is the slice of knowledge.Store the answerer needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	Count(ctx context.Context, source string) (int, error)
}

// Source attributes part of an answer to a stored chunk.
type Source struct {
	ID         int               `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	FullLength int               `json:"full_length"`
	Similarity float32           `json:"similarity"`
}

// Response is one answered question.
type Response struct {
	Answer       string   `json:"answer"`
	Query        string   `json:"query"`
	ResponseTime float64  `json:"response_time"` // seconds
	Sources      []Source `json:"sources"`
}

// Exchange is one question/answer pair kept in history.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
}

// Answerer runs the retrieval-augmented answering pipeline.
// Safe for concurrent use.
type Answerer struct {
	generator Generator
	searcher  Searcher
	topK      int
	logger    log.Logger

	mu      sync.Mutex
	history []Exchange
}

// New creates an Answerer. topK <= 0 defaults to 6. logger may be nil.
func New(generator Generator, searcher Searcher, topK int, logger log.Logger) *Answerer {
	if topK <= 0 {
		topK = 6
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Answerer{
		generator: generator,
		searcher:  searcher,
		topK:      topK,
		logger:    logger,
	}
}

// Answer retrieves relevant chunks and generates a document-grounded answer.
// When nothing is indexed or nothing matches, it returns a canned answer
// without calling the model.
func (a *Answerer) Answer(ctx context.Context, query string, includeSources bool) (*Response, error) {
	start := time.Now()

	count, err := a.searcher.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("checking document count: %w", err)
	}
	if count == 0 {
		return &Response{Answer: answerNoDocuments, Query: query, Sources: []Source{}}, nil
	}

	results, err := a.searcher.Search(ctx, query, knowledge.WithTopK(a.topK))
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	if len(results) == 0 {
		return &Response{Answer: answerNotInDocuments, Query: query, Sources: []Source{}}, nil
	}

	answer, err := a.generator.Generate(ctx, buildStrictPrompt(query, results))
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	answer = strings.TrimSpace(answer)

	// A generic-sounding answer means the model ignored the documents.
	if isGenericResponse(answer) {
		answer = answerGenericFallback
	}

	elapsed := time.Since(start)
	a.logger.Info("generated answer",
		"response_time", elapsed.Seconds(),
		"answer_length", len(answer),
		"sources", len(results))

	a.addToHistory(query, answer)

	resp := &Response{
		Answer:       answer,
		Query:        query,
		ResponseTime: elapsed.Seconds(),
		Sources:      []Source{},
	}
	if includeSources {
		resp.Sources = formatSources(results)
	}
	return resp, nil
}

// History returns the most recent exchanges, newest last.
func (a *Answerer) History(limit int) []Exchange {
	a.mu.Lock()
	defer a.mu.Unlock()

	if limit <= 0 || limit > len(a.history) {
		limit = len(a.history)
	}
	out := make([]Exchange, limit)
	copy(out, a.history[len(a.history)-limit:])
	return out
}

// ClearHistory drops the conversation history.
func (a *Answerer) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// HealthCheck verifies the generator responds at all.
func (a *Answerer) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	out, err := a.generator.Generate(ctx, `Reply with the single word "ok".`)
	if err != nil {
		return fmt.Errorf("model health check: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Errorf("model health check: empty response")
	}
	return nil
}

func (a *Answerer) addToHistory(query, answer string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, Exchange{
		Timestamp: time.Now(),
		Query:     query,
		Answer:    answer,
	})
	if len(a.history) > historyLimit {
		a.history = a.history[len(a.history)-historyLimit:]
	}
}

// buildStrictPrompt assembles the document-only prompt. The rules are spelled
// out in the prompt itself; anything outside the retrieved chunks is off
// limits for the model.
func buildStrictPrompt(query string, results []knowledge.Result) string {
	var context strings.Builder
	for i, r := range results {
		fmt.Fprintf(&context, "Document %d:\n%s\n\n", i+1, r.Document.Content)
	}

	return fmt.Sprintf(`Based ONLY on the following document content, answer the question in English.

STRICT RULES:
- Use ONLY information from the documents below
- If the answer is not in the documents, say "This information is not available in the uploaded documents"
- Respond in English only
- Be factual and direct
- Do not add external knowledge

DOCUMENT CONTENT:
%s
QUESTION: %s

ANSWER (based strictly on the documents above, in English):`, context.String(), query)
}

// genericPhrases signal an answer drawn from model priors rather than the
// supplied documents.
var genericPhrases = []string{
	"i don't know",
	"i'm not sure",
	"i apologize",
	"i can't help",
	"i don't have access",
	"based on my knowledge",
	"in general",
	"typically",
	"usually",
}

func isGenericResponse(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func formatSources(results []knowledge.Result) []Source {
	sources := make([]Source, 0, len(results))
	for i, r := range results {
		preview := r.Document.Content
		if len(preview) > sourcePreviewLength {
			preview = preview[:sourcePreviewLength] + "..."
		}
		sources = append(sources, Source{
			ID:         i + 1,
			Content:    preview,
			Metadata:   r.Document.Metadata,
			FullLength: len(r.Document.Content),
			Similarity: r.Similarity,
		})
	}
	return sources
}
