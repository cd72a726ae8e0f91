package render

import (
	"os"
	"path/filepath"
)

// Store composes the filesystem layout shared by the pipeline and the
// artifact layer. It does no I/O orchestration beyond startup cleanup.
type Store struct {
	// StagingRoot holds per-render staging zips and extraction directories.
	StagingRoot string
	// ConfigRoot is the renderer's config tree.
	ConfigRoot string
	// WebRoot is the renderer's web output tree; raw renders appear under
	// WebRoot/maps/<id>.
	WebRoot string
	// ArtifactsRoot holds published artifact trees.
	ArtifactsRoot string
}

// StagingZip is the staged copy of the source archive for one render.
func (s Store) StagingZip(id string) string {
	return filepath.Join(s.StagingRoot, id+".zip")
}

// StagingDir is the extraction workspace for one render.
func (s Store) StagingDir(id string) string {
	return filepath.Join(s.StagingRoot, id)
}

// ConfigFile is the generated per-render renderer config.
func (s Store) ConfigFile(id string) string {
	return filepath.Join(s.ConfigRoot, "maps", id+".conf")
}

// RenderOutput is where the renderer writes its raw output for one render.
func (s Store) RenderOutput(id string) string {
	return filepath.Join(s.WebRoot, "maps", id)
}

// Artifact is the published tree for a named map.
func (s Store) Artifact(name string) string {
	return filepath.Join(s.ArtifactsRoot, name)
}

// Clean removes leftover staging and unpublished renderer output. Best
// effort; used at startup to recover from a previous crash mid-pipeline.
func (s Store) Clean() {
	_ = os.RemoveAll(s.StagingRoot)
	_ = os.RemoveAll(filepath.Join(s.WebRoot, "maps"))
}
