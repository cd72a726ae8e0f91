// Package artifact resolves HTTP request paths against a published artifact
// tree and the static BlueMap webapp, with a transparent fallback to
// precompressed .gz siblings.
package artifact

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Kind classifies a resolution outcome.
type Kind int

const (
	// NotFound is a normal outcome, not an error.
	NotFound Kind = iota
	// File serves a concrete file from disk.
	File
	// SettingsDoc serves the synthesized settings document.
	SettingsDoc
)

// Resolution is the outcome of resolving one request path.
type Resolution struct {
	Kind Kind
	// Path is the file to serve when Kind is File. With GzipEncoded set it
	// points at the .gz sibling.
	Path string
	// Name is the logical filename the client asked for; content type
	// detection uses this, not Path, so a .gz fallback keeps the original
	// type.
	Name string
	// GzipEncoded marks the response as gzip Content-Encoding.
	GzipEncoded bool
	// Settings is populated when Kind is SettingsDoc.
	Settings *Settings
}

// Resolver maps request paths to webapp files, artifact files or the
// synthesized settings document.
type Resolver struct {
	webRoot string
}

// NewResolver creates a resolver serving the static webapp from webRoot.
func NewResolver(webRoot string) *Resolver {
	return &Resolver{webRoot: webRoot}
}

// Exists reports whether artifactRoot holds a completed render. The
// settings.json written by the renderer is the completion marker.
func (r *Resolver) Exists(artifactRoot string) bool {
	return isRegularFile(filepath.Join(artifactRoot, "settings.json"))
}

// Resolve resolves reqPath against the webapp root and artifactRoot.
func (r *Resolver) Resolve(artifactRoot, reqPath string) Resolution {
	segs := splitRequestPath(reqPath)

	switch {
	case len(segs) == 0:
		return r.webFile("index.html")

	case len(segs) == 1 && segs[0] == "index.html",
		segs[0] == "lang",
		segs[0] == "assets":
		return r.webFile(path.Join(segs...))

	case len(segs) == 1 && segs[0] == "settings.json":
		settings := NewSettings(filepath.Base(artifactRoot))
		return Resolution{Kind: SettingsDoc, Settings: &settings}

	case segs[0] == "maps" && len(segs) >= 2:
		return resolveArtifactFile(artifactRoot, segs[2:])

	default:
		return Resolution{Kind: NotFound}
	}
}

func (r *Resolver) webFile(rel string) Resolution {
	target := filepath.Join(r.webRoot, filepath.FromSlash(rel))
	if !isRegularFile(target) {
		return Resolution{Kind: NotFound}
	}
	return Resolution{Kind: File, Path: target, Name: path.Base(rel)}
}

// resolveArtifactFile serves rest from the artifact tree, falling back to a
// sibling with a .gz suffix appended to the final component.
func resolveArtifactFile(artifactRoot string, rest []string) Resolution {
	if len(rest) == 0 {
		return Resolution{Kind: NotFound}
	}

	target := filepath.Join(artifactRoot, filepath.Join(rest...))
	name := rest[len(rest)-1]

	if isRegularFile(target) {
		return Resolution{Kind: File, Path: target, Name: name}
	}
	if isRegularFile(target + ".gz") {
		return Resolution{Kind: File, Path: target + ".gz", Name: name, GzipEncoded: true}
	}
	return Resolution{Kind: NotFound}
}

// splitRequestPath cleans and splits a URL path. Cleaning is rooted, so ".."
// segments cannot escape above the root.
func splitRequestPath(reqPath string) []string {
	cleaned := path.Clean("/" + reqPath)
	if cleaned == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
