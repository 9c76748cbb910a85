package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Ujjwal-deep/RAG-project/internal/api"
	"github.com/Ujjwal-deep/RAG-project/internal/config"
	"github.com/Ujjwal-deep/RAG-project/internal/database"
	"github.com/Ujjwal-deep/RAG-project/internal/llm"
	"github.com/Ujjwal-deep/RAG-project/internal/queue"
	"github.com/Ujjwal-deep/RAG-project/internal/queue/workers"
	"github.com/Ujjwal-deep/RAG-project/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.Store.SupabaseURL == "" {
		slog.Error("worker requires SUPABASE_URL for staged document storage")
		os.Exit(1)
	}

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable", "error", err)
		} else {
			defer db.Close()
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	gw := llm.NewGateway(cfg.LLM)
	pipeline, err := api.BuildPipeline(db, rdb, gw, cfg)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	stagingStore := storage.NewSupabaseStorage(cfg.Store.SupabaseURL, cfg.Store.SupabaseKey)
	ingestWorker := workers.NewIngestWorker(pipeline, stagingStore, cfg.Storage.Bucket)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeDocumentIngest, ingestWorker)

	slog.Info("starting ingestion worker", "redis", cfg.Redis.Addr, "bucket", cfg.Storage.Bucket)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}
