package render

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"mapserve/internal/pkg/logger"
)

// Deps configures a Pipeline.
type Deps struct {
	Store       Store
	JavaBin     string
	UnzipBin    string
	RendererJar string
	// Precompress enables the gzip sidecar pass over published tile files.
	Precompress bool
	Log         *logger.Logger
}

// Pipeline turns a source world archive into a published artifact tree:
// copy, extract, normalize layout, materialize renderer config, invoke the
// renderer, publish. Every step cleans up what it staged on every exit path,
// so a failed run leaves nothing behind.
type Pipeline struct {
	store       Store
	javaBin     string
	unzipBin    string
	rendererJar string
	precompress bool
	log         *logger.Logger
}

func NewPipeline(d Deps) *Pipeline {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pipeline{
		store:       d.Store,
		javaBin:     d.JavaBin,
		unzipBin:    d.UnzipBin,
		rendererJar: d.RendererJar,
		precompress: d.Precompress,
		log:         log.WithComponent("pipeline"),
	}
}

// Run executes the staged pipeline for key. Errors are always part of the
// closed render taxonomy.
func (p *Pipeline) Run(ctx context.Context, key Key) error {
	if pathExists(key.Dest) {
		return &Error{Kind: FailureDestinationExists}
	}

	id := strconv.FormatUint(rand.Uint64(), 10)
	log := p.log.WithRenderID(id)
	log.Info("render started", "source", key.Source, "dest", key.Dest, "dimension", key.Dimension.String())

	// Stage: copy the source archive into the scratch area.
	stagingZip := p.store.StagingZip(id)
	if err := os.MkdirAll(filepath.Dir(stagingZip), 0o755); err != nil {
		return External(err)
	}
	if err := copyFile(key.Source, stagingZip); err != nil {
		return External(err)
	}

	// Extract. The staged zip is gone after this step no matter what.
	stagingDir := p.store.StagingDir(id)
	unzipErr := p.runTool(ctx, log, p.unzipBin, stagingZip, "-d", stagingDir)
	_ = os.Remove(stagingZip)
	if unzipErr != nil {
		_ = os.RemoveAll(stagingDir)
		if ctx.Err() != nil {
			return External(ctx.Err())
		}
		var exitErr *exec.ExitError
		if !stderrors.As(unzipErr, &exitErr) {
			// Tool could not be spawned at all.
			return External(unzipErr)
		}
		return &Error{Kind: FailureExtraction}
	}

	if err := flattenSingleChild(stagingDir); err != nil {
		_ = os.RemoveAll(stagingDir)
		return External(err)
	}

	confPath, err := p.materializeConfig(key, stagingDir, id)
	if err != nil {
		_ = os.RemoveAll(stagingDir)
		return err
	}

	// Invoke the renderer. Config file and extraction dir are removed
	// afterwards regardless of outcome.
	renderErr := p.runTool(ctx, log, p.javaBin, "-jar", p.rendererJar, "-c", p.store.ConfigRoot, "-m", id, "-r")
	_ = os.Remove(confPath)
	_ = os.RemoveAll(stagingDir)

	output := p.store.RenderOutput(id)
	if renderErr != nil {
		// The output directory may not exist if the renderer died early;
		// RemoveAll treats that as a no-op.
		_ = os.RemoveAll(output)
		if ctx.Err() != nil {
			return External(ctx.Err())
		}
		var exitErr *exec.ExitError
		if !stderrors.As(renderErr, &exitErr) {
			return External(renderErr)
		}
		return &Error{Kind: FailureRendering}
	}

	// Publish: move the renderer output into the artifact tree.
	if err := os.MkdirAll(filepath.Dir(key.Dest), 0o755); err != nil {
		_ = os.RemoveAll(output)
		return External(err)
	}
	if err := os.Rename(output, key.Dest); err != nil {
		_ = os.RemoveAll(output)
		return External(err)
	}

	if p.precompress {
		p.precompressTiles(key.Dest, log)
	}

	log.Info("render published", "dest", key.Dest)
	return nil
}

func (p *Pipeline) runTool(ctx context.Context, log *logger.Logger, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Warn("tool failed", "tool", name, "error", err.Error(), "output", truncate(string(out), 2000))
	}
	return err
}

// materializeConfig reads the template, substitutes the first occurrence of
// each token, and writes the per-render renderer config.
func (p *Pipeline) materializeConfig(key Key, worldDir, id string) (string, error) {
	raw, err := os.ReadFile(key.Template)
	if err != nil {
		return "", &Error{Kind: FailureTemplateNotFound}
	}

	cfg := string(raw)
	cfg = strings.Replace(cfg, "%world%", worldDir, 1)
	cfg = strings.Replace(cfg, "%dimension%", key.Dimension.String(), 1)
	cfg = strings.Replace(cfg, "%name%", filepath.Base(key.Dest), 1)

	confPath := p.store.ConfigFile(id)
	if err := os.MkdirAll(filepath.Dir(confPath), 0o755); err != nil {
		return "", External(err)
	}
	if err := os.WriteFile(confPath, []byte(cfg), 0o644); err != nil {
		return "", External(err)
	}
	return confPath, nil
}

// flattenSingleChild collapses one level of nesting when the archive packed
// the world inside a single wrapper directory. With zero or multiple
// children the layout is left unchanged. The swap is three discrete steps:
// rename the child to a temp sibling, remove the now-empty parent, rename
// the temp into the parent's place.
func flattenSingleChild(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	entries, err := f.ReadDir(2)
	f.Close()
	if err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	if len(entries) != 1 {
		return nil
	}

	child := filepath.Join(dir, entries[0].Name())
	temp := filepath.Join(filepath.Dir(dir), entries[0].Name()+"_temp")

	if err := os.Rename(child, temp); err != nil {
		return err
	}
	if err := os.Remove(dir); err != nil {
		return err
	}
	return os.Rename(temp, dir)
}

// precompressTiles writes .gz sidecars for uncompressed .json files in the
// published tree so the resolver can serve them with Content-Encoding: gzip.
// Best effort: a failed sidecar never fails the render.
func (p *Pipeline) precompressTiles(root string, log *logger.Logger) {
	count := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".json") {
			return nil
		}
		if pathExists(path + ".gz") {
			return nil
		}
		if err := gzipSidecar(path); err != nil {
			log.Warn("precompress failed", "path", path, "error", err.Error())
			return nil
		}
		count++
		return nil
	})
	if count > 0 {
		log.Debug("precompressed tiles", "count", count)
	}
}

func gzipSidecar(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		_ = os.Remove(path + ".gz")
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		_ = os.Remove(path + ".gz")
		return err
	}
	return out.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
