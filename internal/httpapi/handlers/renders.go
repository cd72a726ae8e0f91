package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mapserve/internal/httpapi/util"
	"mapserve/internal/httpkit"
	"mapserve/internal/render"
)

type CreateRenderRequest struct {
	// Name is the published map name; the artifact lands under
	// artifacts/<name> and is served at /maps/<name>.
	Name string `json:"name"`
	// Exactly one of ArchiveID and SourcePath selects the world zip: an
	// uploaded archive or a path already on the worker's filesystem.
	ArchiveID  string `json:"archive_id"`
	SourcePath string `json:"source_path"`
	// Template overrides the map config template; empty uses the server
	// default.
	Template  string `json:"template"`
	Dimension string `json:"dimension"`
}

func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}

	req.ArchiveID = strings.TrimSpace(req.ArchiveID)
	req.SourcePath = strings.TrimSpace(req.SourcePath)
	if (req.ArchiveID == "") == (req.SourcePath == "") {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "exactly one of archive_id and source_path is required", nil)
		return
	}

	if req.ArchiveID != "" {
		var exists bool
		if err := h.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM archives WHERE id=$1)`, req.ArchiveID,
		).Scan(&exists); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
			return
		}
		if !exists {
			httpkit.WriteErr(w, 404, "ARCHIVE_NOT_FOUND", "archive not found", map[string]any{"archive_id": req.ArchiveID})
			return
		}
	}

	dimension := strings.TrimSpace(req.Dimension)
	if dimension == "" {
		dimension = render.Overworld.String()
	}
	if _, err := render.ParseDimension(dimension); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "unknown dimension", map[string]any{"field": "dimension", "value": dimension})
		return
	}

	template := strings.TrimSpace(req.Template)
	if template == "" {
		template = h.cfg.MapTemplate
	}

	renderID := util.NewID("rnd")
	createdAt := time.Now().UTC()
	_, err := h.pool.Exec(ctx,
		`INSERT INTO renders (id, name, status, archive_id, source_path, template, dimension, created_at)
		 VALUES ($1,$2,'QUEUED',$3,$4,$5,$6,$7)`,
		renderID, req.Name, nullIfEmpty(req.ArchiveID), nullIfEmpty(req.SourcePath),
		nullIfEmpty(template), dimension, createdAt,
	)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	if err := h.rdb.LPush(ctx, h.cfg.QueueName, renderID).Err(); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{
		"render": map[string]any{
			"id":          renderID,
			"name":        req.Name,
			"status":      "QUEUED",
			"archive_id":  req.ArchiveID,
			"source_path": req.SourcePath,
			"template":    template,
			"dimension":   dimension,
			"created_at":  createdAt,
		},
	})
}

func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	limitStr := strings.TrimSpace(r.URL.Query().Get("limit"))
	limit := 50
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	var (
		rows pgxRows
		err  error
	)

	if status != "" {
		rows, err = h.pool.Query(ctx,
			`SELECT id, name, status, dimension, created_at
			 FROM renders WHERE status=$1
			 ORDER BY created_at DESC
			 LIMIT $2`,
			status, limit,
		)
	} else {
		rows, err = h.pool.Query(ctx,
			`SELECT id, name, status, dimension, created_at
			 FROM renders
			 ORDER BY created_at DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	defer rows.Close()

	type item struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Status    string    `json:"status"`
		Dimension string    `json:"dimension"`
		CreatedAt time.Time `json:"created_at"`
	}

	out := make([]item, 0, limit)
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.ID, &it.Name, &it.Status, &it.Dimension, &it.CreatedAt); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "row scan failed", nil)
			return
		}
		out = append(out, it)
	}

	httpkit.WriteJSON(w, 200, map[string]any{"renders": out})
}

func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderID := chi.URLParam(r, "renderId")

	var (
		id, name, status, dimension          string
		archiveID, sourcePath, tmpl, errText sql.NullString
		createdAt                            time.Time
		startedAt, finishedAt                *time.Time
	)

	err := h.pool.QueryRow(ctx,
		`SELECT id, name, status, COALESCE(archive_id,''), COALESCE(source_path,''),
		        COALESCE(template,''), dimension, error_text, created_at, started_at, finished_at
		 FROM renders WHERE id=$1`,
		renderID,
	).Scan(&id, &name, &status, &archiveID, &sourcePath, &tmpl, &dimension,
		&errText, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		httpkit.WriteErr(w, 404, "RENDER_NOT_FOUND", "render not found", map[string]any{"render_id": renderID})
		return
	}

	body := map[string]any{
		"id":          id,
		"name":        name,
		"status":      status,
		"archive_id":  archiveID.String,
		"source_path": sourcePath.String,
		"template":    tmpl.String,
		"dimension":   dimension,
		"created_at":  createdAt,
		"started_at":  startedAt,
		"finished_at": finishedAt,
	}
	if errText.Valid && errText.String != "" {
		body["error"] = errText.String
	}

	httpkit.WriteJSON(w, 200, map[string]any{"render": body})
}

type pgxRows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
}
