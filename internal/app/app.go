package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"ragbase/features/ask"
	"ragbase/features/ingest"
	"ragbase/features/stats"
	"ragbase/internal/agent"
	"ragbase/internal/config"
	"ragbase/internal/index"
	"ragbase/internal/ledger"
	"ragbase/internal/middleware"
	"ragbase/internal/retrieval"
	"ragbase/internal/text"
	"ragbase/internal/worker"
)

// VectorStore is everything the application needs from the vector database:
// writes for indexing, search for retrieval, count for stats.
type VectorStore interface {
	index.VectorStore
	retrieval.VectorStore
	Count(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler        http.Handler
	IngestService  *ingest.Service
	IngestConsumer *worker.IngestConsumer

	port int
}

func New(ctx context.Context, cfg *config.Config, db *sql.DB, vecStore VectorStore, taskPub TaskPublisher) (*App, error) {
	registry := newRegistry(cfg)
	models, err := resolveModels(ctx, cfg, registry)
	if err != nil {
		return nil, err
	}

	// The ledger namespace pins entries to this store and collection, so the
	// same database can back several indexes.
	namespace := "weaviate/" + cfg.IndexName
	ledgerRepo := ledger.NewPostgresRepo(db)

	pipeline := index.NewPipeline(text.NewSplitter(), ledgerRepo, vecStore, models.embedder, namespace)

	// Feature: Ingest
	ingestService := ingest.NewService(pipeline, taskPub, config.TopicIngestRequest, cfg.ForceUpdate)
	ingestHandler := ingest.NewHandler(ingestService)

	// Feature: Ask
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retriever := retrieval.NewRetriever(models.embedder, vecStore, retrieval.DefaultTopK, queryLogger)
	researcher := agent.NewQueryResearcher(models.queryModel, retriever, retrieval.DefaultTopK)
	orchestrator := agent.NewOrchestrator(models.queryModel, models.responseModel, researcher, agent.DefaultResponseTopK)
	askHandler := ask.NewHandler(orchestrator)

	// Feature: Stats
	statsHandler := stats.NewHandler(ledgerRepo, vecStore, namespace)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("POST /ask", middleware.CorrelationID(enableCORS(askHandler.Ask)))
	mux.Handle("POST /ingest", middleware.CorrelationID(enableCORS(ingestHandler.Run)))
	mux.Handle("POST /ingest/async", middleware.CorrelationID(enableCORS(ingestHandler.RunAsync)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})

	ingestConsumer := worker.NewIngestConsumer(ingestService, taskPub, config.TopicIngestResult)

	return &App{
		Handler:        mux,
		IngestService:  ingestService,
		IngestConsumer: ingestConsumer,
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
