package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mapserve/internal/artifact"
	"mapserve/internal/config"
	"mapserve/internal/pkg/logger"
	"mapserve/internal/ports"
	"mapserve/internal/render"
)

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	SP        ports.StorageProvider
	Coalescer *render.Coalescer
	Resolver  *artifact.Resolver
	Store     render.Store
	Cfg       config.Config
	Log       *logger.Logger
}

type Handler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sp        ports.StorageProvider
	coalescer *render.Coalescer
	resolver  *artifact.Resolver
	store     render.Store
	cfg       config.Config
	log       *logger.Logger

	// onDemand is the render key for the active map, nil when on-demand
	// rendering is disabled.
	onDemand *render.Key
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = logger.NewDefault()
	}

	h := &Handler{
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		coalescer: d.Coalescer,
		resolver:  d.Resolver,
		store:     d.Store,
		cfg:       d.Cfg,
		log:       d.Log,
	}

	if d.Cfg.MapSource != "" {
		dim, err := render.ParseDimension(d.Cfg.MapDimension)
		if err != nil {
			d.Log.Warn("invalid MAP_DIMENSION, falling back to overworld",
				"value", d.Cfg.MapDimension,
			)
			dim = render.Overworld
		}
		h.onDemand = &render.Key{
			Source:    d.Cfg.MapSource,
			Dest:      h.store.Artifact(d.Cfg.MapName),
			Template:  d.Cfg.MapTemplate,
			Dimension: dim,
		}
	}

	return h
}
