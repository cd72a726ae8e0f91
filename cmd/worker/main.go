package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mapserve/internal/config"
	"mapserve/internal/pkg/logger"
	"mapserve/internal/render"
	"mapserve/internal/storage"
	"mapserve/internal/worker"
)

func main() {
	ctx := context.Background()

	log := logger.New(logger.Config{
		Level:       config.Env("LOG_LEVEL", "info"),
		Format:      config.Env("LOG_FORMAT", "json"),
		ServiceName: "mapserve-worker",
	})

	cfg := config.Load()
	dbURL := config.MustEnv("DATABASE_URL")
	redisAddr := config.MustEnv("REDIS_ADDR")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	sp, err := storage.NewProvider()
	if err != nil {
		panic(err)
	}

	store := render.Store{
		StagingRoot:   cfg.StagingRoot,
		ConfigRoot:    cfg.ConfigRoot,
		WebRoot:       cfg.WebRoot,
		ArtifactsRoot: cfg.ArtifactsRoot,
	}

	pipeline := render.NewPipeline(render.Deps{
		Store:       store,
		JavaBin:     cfg.JavaBin,
		UnzipBin:    cfg.UnzipBin,
		RendererJar: cfg.RendererJar,
		Precompress: cfg.Precompress,
		Log:         log,
	})

	deps := worker.Deps{
		Pool:      pool,
		RDB:       rdb,
		SP:        sp,
		Coalescer: render.NewCoalescer(pipeline, log),
		Store:     store,
		QueueName: cfg.QueueName,
		Log:       log,
	}

	fmt.Println("mapserve worker started")
	if err := worker.Run(ctx, deps); err != nil {
		panic(err)
	}
}
