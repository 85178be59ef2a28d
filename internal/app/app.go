// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: the Genkit
// instance, the database pool, the knowledge store, the answerer, object
// storage, and the speech engines. Setup builds it, Close releases it.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/document"
	"github.com/docvoice/docvoice/internal/knowledge"
	"github.com/docvoice/docvoice/internal/log"
	"github.com/docvoice/docvoice/internal/rag"
	"github.com/docvoice/docvoice/internal/server"
	"github.com/docvoice/docvoice/internal/speech"
	"github.com/docvoice/docvoice/internal/storage"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool
	Querier   *knowledge.PostgresQuerier
	Knowledge *knowledge.Store
	Generator *rag.GenkitGenerator
	Answerer  *rag.Answerer
	Splitter  *document.Splitter

	// Optional services
	Objects     storage.ObjectStore
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// NewServer builds the HTTP server from the wired components.
func (a *App) NewServer() (*server.Server, error) {
	modelInfo := rag.ModelInfo{}
	if a.Generator != nil {
		modelInfo = a.Generator.Info(a.Config.RetrievalTopK)
	}

	return server.NewServer(server.ServerConfig{ //nolint:wrapcheck
		Logger:      a.Logger,
		Answerer:    a.Answerer,
		Store:       a.Knowledge,
		DB:          a.Querier,
		Objects:     a.Objects,
		Transcriber: a.Transcriber,
		Synthesizer: a.Synthesizer,
		Splitter:    a.Splitter,
		Speech:      a.Config.Speech,
		ModelInfo:   modelInfo,
		CORSOrigins: a.Config.CORSOrigins,
		TrustProxy:  a.Config.TrustProxy,
		RateBurst:   a.Config.RateBurst,
	})
}
