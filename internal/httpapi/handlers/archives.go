package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mapserve/internal/httpapi/util"
	"mapserve/internal/httpkit"
	"mapserve/internal/ports"
)

func (h *Handler) PostArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(512 << 20); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	label := strings.TrimSpace(r.FormValue("label"))

	file, header, err := r.FormFile("file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".zip" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "archive must be a zip file", map[string]any{"filename": header.Filename})
		return
	}

	archiveID := util.NewID("arc")
	objectKey := fmt.Sprintf("archives/%s/world.zip", archiveID)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(".zip")
	}
	if contentType == "" {
		contentType = "application/zip"
	}

	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	createdAt := time.Now().UTC()
	provider := h.sp.Provider()
	_, err = h.pool.Exec(ctx,
		`INSERT INTO archives (id, provider, object_key, mime, size_bytes, label, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		archiveID, provider, out.ObjectKey, contentType, out.Size, nullIfEmpty(label), createdAt,
	)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert archive failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{
		"archive": map[string]any{
			"id":         archiveID,
			"provider":   provider,
			"object_key": out.ObjectKey,
			"mime":       contentType,
			"size_bytes": out.Size,
			"label":      label,
			"created_at": createdAt,
		},
	})
}

func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	archiveID := chi.URLParam(r, "archiveId")

	var (
		id, provider, objectKey, mimeType string
		sizeBytes                         int64
		label                             sql.NullString
		createdAt                         time.Time
	)

	err := h.pool.QueryRow(ctx,
		`SELECT id, provider, object_key, mime, size_bytes, label, created_at
		 FROM archives WHERE id=$1`, archiveID,
	).Scan(&id, &provider, &objectKey, &mimeType, &sizeBytes, &label, &createdAt)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARCHIVE_NOT_FOUND", "archive not found", map[string]any{"archive_id": archiveID})
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"archive": map[string]any{
			"id":         id,
			"provider":   provider,
			"object_key": objectKey,
			"mime":       mimeType,
			"size_bytes": sizeBytes,
			"label":      label.String,
			"created_at": createdAt,
		},
	})
}

func (h *Handler) GetArchiveURL(w http.ResponseWriter, r *http.Request) {
	archiveID := chi.URLParam(r, "archiveId")
	expiresAt := time.Now().UTC().Add(30 * time.Minute)

	httpkit.WriteJSON(w, 200, map[string]any{
		"archive_id": archiveID,
		"url":        fmt.Sprintf("http://localhost:%s/archives/%s/content", h.cfg.HTTPPort, archiveID),
		"expires_at": expiresAt,
	})
}

func (h *Handler) StreamArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	archiveID := chi.URLParam(r, "archiveId")

	var objectKey, mimeType string
	var sizeBytes int64

	err := h.pool.QueryRow(ctx,
		`SELECT object_key, mime, size_bytes FROM archives WHERE id=$1`, archiveID,
	).Scan(&objectKey, &mimeType, &sizeBytes)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARCHIVE_NOT_FOUND", "archive not found", map[string]any{"archive_id": archiveID})
		return
	}

	rc, ct, _, err := h.sp.GetObject(ctx, objectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARCHIVE_FILE_MISSING", "archive file missing", map[string]any{"object_key": objectKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = mimeType
	}
	w.Header().Set("Content-Type", ct)
	if sizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(sizeBytes, 10))
	}
	_, _ = io.Copy(w, rc)
}

func (h *Handler) DeleteArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	archiveID := chi.URLParam(r, "archiveId")

	var objectKey string
	err := h.pool.QueryRow(ctx, `SELECT object_key FROM archives WHERE id=$1`, archiveID).Scan(&objectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARCHIVE_NOT_FOUND", "archive not found", map[string]any{"archive_id": archiveID})
		return
	}

	var cnt int
	if err := h.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM renders WHERE archive_id=$1 AND status IN ('QUEUED','RUNNING')`,
		archiveID,
	).Scan(&cnt); err != nil {
		if !httpkit.IsUndefinedTable(err) {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
			return
		}
		cnt = 0
	}

	if cnt > 0 {
		httpkit.WriteErr(w, 409, "ARCHIVE_IN_USE", "archive is referenced by pending renders", map[string]any{"archive_id": archiveID})
		return
	}

	if err := h.sp.DeleteObject(ctx, objectKey); err != nil && !errors.Is(err, os.ErrNotExist) {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage delete failed", map[string]any{"object_key": objectKey})
		return
	}

	_, err = h.pool.Exec(ctx, `DELETE FROM archives WHERE id=$1`, archiveID)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	w.WriteHeader(204)
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
