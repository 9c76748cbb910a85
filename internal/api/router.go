package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Ujjwal-deep/RAG-project/internal/api/handlers"
	"github.com/Ujjwal-deep/RAG-project/internal/api/middleware"
	"github.com/Ujjwal-deep/RAG-project/internal/cache"
	"github.com/Ujjwal-deep/RAG-project/internal/config"
	"github.com/Ujjwal-deep/RAG-project/internal/embedding"
	"github.com/Ujjwal-deep/RAG-project/internal/llm"
	"github.com/Ujjwal-deep/RAG-project/internal/queue"
	"github.com/Ujjwal-deep/RAG-project/internal/rag"
	"github.com/Ujjwal-deep/RAG-project/internal/storage"
	"github.com/Ujjwal-deep/RAG-project/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

// BuildStore picks the vector store backend from config.
func BuildStore(db *pgxpool.Pool, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Store.Backend {
	case "supabase":
		return vectorstore.NewSupabaseStore(cfg.Store), nil
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector backend requires DATABASE_URL")
		}
		return vectorstore.NewPgVectorStore(db, cfg.Store.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// BuildPipeline wires the ingest/query pipeline from config. Shared by
// the API server and the ingest worker.
func BuildPipeline(db *pgxpool.Pool, rdb *redis.Client, gw llm.Gateway, cfg *config.Config) (rag.Pipeline, error) {
	store, err := BuildStore(db, cfg)
	if err != nil {
		return nil, err
	}

	embedSvc := embedding.NewService(gw, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BatchSize)
	if rdb != nil {
		embedSvc = embedSvc.WithCache(cache.NewCache(rdb), cfg.Embedding.CacheTTL)
	}

	composer := rag.NewComposer(llm.NewCompleter(gw, cfg.Completion))
	return rag.NewPipeline(store, embedSvc, composer, cfg.Chunking), nil
}

func (rt *Router) Setup() (http.Handler, error) {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	pipeline, err := BuildPipeline(rt.db, rt.redis, rt.llmGW, rt.cfg)
	if err != nil {
		return nil, err
	}

	// Async ingestion needs both a task queue and staging storage.
	var queueClient *queue.Client
	var stagingStore storage.Storage
	if rt.redis != nil && rt.cfg.Store.SupabaseURL != "" {
		queueClient = queue.NewClient(rt.cfg.Redis)
		stagingStore = storage.NewSupabaseStorage(rt.cfg.Store.SupabaseURL, rt.cfg.Store.SupabaseKey)
	}

	r.Route("/api/v1", func(r chi.Router) {
		docH := handlers.NewDocumentHandler(pipeline, queueClient, stagingStore, rt.cfg.Storage.Bucket)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
		})

		ragH := handlers.NewRAGHandler(pipeline)
		r.Route("/rag", func(r chi.Router) {
			r.Post("/query", ragH.Query)
		})
	})

	return r, nil
}
