package worker

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mapserve/internal/pkg/logger"
	"mapserve/internal/ports"
	"mapserve/internal/render"
)

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	Coalescer *render.Coalescer
	Store     render.Store
	QueueName string
	Log       *logger.Logger
}
