package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mapserve/internal/artifact"
	"mapserve/internal/config"
	"mapserve/internal/httpapi/handlers"
	"mapserve/internal/httpkit"
	"mapserve/internal/pkg/logger"
	"mapserve/internal/pkg/middleware"
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

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.Recovery(d.Log))

	allowedOrigins := config.EnvCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:      d.Pool,
		RDB:       d.RDB,
		SP:        d.SP,
		Coalescer: d.Coalescer,
		Resolver:  d.Resolver,
		Store:     d.Store,
		Cfg:       d.Cfg,
		Log:       d.Log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- ARCHIVES ----
	r.Post("/archives", h.PostArchive)
	r.Get("/archives/{archiveId}", h.GetArchive)
	r.Get("/archives/{archiveId}/url", h.GetArchiveURL)
	r.Get("/archives/{archiveId}/content", h.StreamArchive)
	r.Delete("/archives/{archiveId}", h.DeleteArchive)

	// ---- RENDERS ----
	r.Post("/renders", h.PostRender)
	r.Get("/renders", h.ListRenders)
	r.Get("/renders/{renderId}", h.GetRender)

	// ---- WEBAPP + MAP ARTIFACTS ----
	// Everything else resolves against the webapp and the active artifact.
	r.Get("/*", h.ServeMap)

	return r
}
