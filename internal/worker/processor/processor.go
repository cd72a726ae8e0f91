// Package processor executes queued renders: it materializes the source
// archive, hands the render to the coalescer and records the outcome in the
// registry.
package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mapserve/internal/pkg/logger"
	"mapserve/internal/ports"
	"mapserve/internal/render"
)

type Deps struct {
	Pool      *pgxpool.Pool
	SP        ports.StorageProvider
	Coalescer *render.Coalescer
	Store     render.Store
	Log       *logger.Logger
}

type Processor struct {
	pool      *pgxpool.Pool
	sp        ports.StorageProvider
	coalescer *render.Coalescer
	store     render.Store
	log       *logger.Logger
}

func New(d Deps) *Processor {
	if d.Log == nil {
		d.Log = logger.NewDefault()
	}
	return &Processor{
		pool:      d.Pool,
		sp:        d.SP,
		coalescer: d.Coalescer,
		store:     d.Store,
		log:       d.Log,
	}
}

// ProcessRender runs one queued render to completion and records DONE or
// FAILED in the registry. The returned error reports processing faults; a
// render that fails and is recorded as FAILED also returns its error so the
// caller can log it.
func (p *Processor) ProcessRender(ctx context.Context, renderID string) error {
	log := p.log.WithRenderID(renderID)

	var name, archiveID, sourcePath, template, dimension string
	err := p.pool.QueryRow(ctx,
		`SELECT name, COALESCE(archive_id,''), COALESCE(source_path,''), COALESCE(template,''), dimension
		 FROM renders WHERE id=$1 AND status='QUEUED'`,
		renderID,
	).Scan(&name, &archiveID, &sourcePath, &template, &dimension)
	if err != nil {
		return fmt.Errorf("fetch queued render %s: %w", renderID, err)
	}

	if _, err := p.pool.Exec(ctx,
		`UPDATE renders SET status='RUNNING', started_at=$2 WHERE id=$1`,
		renderID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("mark render running: %w", err)
	}

	dim, err := render.ParseDimension(dimension)
	if err != nil {
		return p.fail(ctx, renderID, err)
	}

	source := sourcePath
	if archiveID != "" {
		downloaded, err := p.materializeArchive(ctx, renderID, archiveID)
		if err != nil {
			return p.fail(ctx, renderID, fmt.Errorf("materialize archive %s: %w", archiveID, err))
		}
		defer os.Remove(downloaded)
		source = downloaded
	}

	key := render.Key{
		Source:    source,
		Dest:      p.store.Artifact(name),
		Template:  template,
		Dimension: dim,
	}

	if err := p.coalescer.Render(ctx, key); err != nil {
		return p.fail(ctx, renderID, err)
	}

	if _, err := p.pool.Exec(ctx,
		`UPDATE renders SET status='DONE', finished_at=$2 WHERE id=$1`,
		renderID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("mark render done: %w", err)
	}

	log.Info("render published", "name", name, "dest", key.Dest)
	return nil
}

// materializeArchive downloads the archive object into the staging tree and
// returns the local zip path.
func (p *Processor) materializeArchive(ctx context.Context, renderID, archiveID string) (string, error) {
	var objectKey string
	err := p.pool.QueryRow(ctx,
		`SELECT object_key FROM archives WHERE id=$1`, archiveID,
	).Scan(&objectKey)
	if err != nil {
		return "", fmt.Errorf("lookup archive: %w", err)
	}

	rc, _, _, err := p.sp.GetObject(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("get object %s: %w", objectKey, err)
	}
	defer rc.Close()

	dst := filepath.Join(p.store.StagingRoot, "downloads", renderID+".zip")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("download archive: %w", err)
	}
	return dst, nil
}

func (p *Processor) fail(ctx context.Context, renderID string, cause error) error {
	if _, err := p.pool.Exec(ctx,
		`UPDATE renders SET status='FAILED', error_text=$2, finished_at=$3 WHERE id=$1`,
		renderID, cause.Error(), time.Now().UTC(),
	); err != nil {
		p.log.WithRenderID(renderID).Error("mark render failed", "error", err.Error())
	}
	return cause
}
