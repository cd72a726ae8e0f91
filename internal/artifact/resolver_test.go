package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testTree(t *testing.T) (webRoot, artifactRoot string) {
	t.Helper()
	root := t.TempDir()
	webRoot = filepath.Join(root, "web")
	artifactRoot = filepath.Join(root, "artifacts", "world")

	writeFile(t, filepath.Join(webRoot, "index.html"), "<html>")
	writeFile(t, filepath.Join(webRoot, "lang", "en.json"), "{}")
	writeFile(t, filepath.Join(webRoot, "assets", "app.js"), "js")

	writeFile(t, filepath.Join(artifactRoot, "settings.json"), "{}")
	writeFile(t, filepath.Join(artifactRoot, "textures.json"), "tex")
	writeFile(t, filepath.Join(artifactRoot, "tiles", "0", "x1", "z2.json.gz"), "gz")
	return webRoot, artifactRoot
}

func TestResolveWebappPaths(t *testing.T) {
	webRoot, artifactRoot := testTree(t)
	r := NewResolver(webRoot)

	for _, reqPath := range []string{"/", "", "/index.html"} {
		res := r.Resolve(artifactRoot, reqPath)
		require.Equal(t, File, res.Kind, "path %q", reqPath)
		assert.Equal(t, filepath.Join(webRoot, "index.html"), res.Path)
		assert.Equal(t, "index.html", res.Name)
		assert.False(t, res.GzipEncoded)
	}

	res := r.Resolve(artifactRoot, "/lang/en.json")
	require.Equal(t, File, res.Kind)
	assert.Equal(t, filepath.Join(webRoot, "lang", "en.json"), res.Path)

	res = r.Resolve(artifactRoot, "/assets/app.js")
	require.Equal(t, File, res.Kind)
	assert.Equal(t, "app.js", res.Name)

	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/assets/missing.js").Kind)
}

func TestResolveSettingsIsSynthesized(t *testing.T) {
	webRoot, artifactRoot := testTree(t)
	r := NewResolver(webRoot)

	res := r.Resolve(artifactRoot, "/settings.json")
	require.Equal(t, SettingsDoc, res.Kind)
	require.NotNil(t, res.Settings)
	assert.Equal(t, []string{"world"}, res.Settings.Maps)
	assert.Equal(t, "5.4", res.Settings.Version)

	// The settings.json inside the artifact tree is never served directly.
	raw, err := json.Marshal(res.Settings)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"useCookies":true`)
	assert.Contains(t, string(raw), `"maxZoomDistance":100000`)
	assert.Contains(t, string(raw), `"scripts":[]`)
}

func TestResolveArtifactFiles(t *testing.T) {
	webRoot, artifactRoot := testTree(t)
	r := NewResolver(webRoot)

	res := r.Resolve(artifactRoot, "/maps/world/textures.json")
	require.Equal(t, File, res.Kind)
	assert.Equal(t, filepath.Join(artifactRoot, "textures.json"), res.Path)
	assert.False(t, res.GzipEncoded)

	// Missing exact file with a .gz sibling falls back to the sidecar but
	// keeps the requested name for content type detection.
	res = r.Resolve(artifactRoot, "/maps/world/tiles/0/x1/z2.json")
	require.Equal(t, File, res.Kind)
	assert.Equal(t, filepath.Join(artifactRoot, "tiles", "0", "x1", "z2.json.gz"), res.Path)
	assert.Equal(t, "z2.json", res.Name)
	assert.True(t, res.GzipEncoded)

	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/maps/world/tiles/0/x9/z9.json").Kind)
	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/maps/world").Kind)
}

func TestResolveRejectsTraversalAndUnknown(t *testing.T) {
	webRoot, artifactRoot := testTree(t)
	r := NewResolver(webRoot)

	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/../etc/passwd").Kind)
	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/maps/world/../../../etc/passwd").Kind)
	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/api/anything").Kind)
	assert.Equal(t, NotFound, r.Resolve(artifactRoot, "/settings.json/extra").Kind)
}

func TestExists(t *testing.T) {
	webRoot, artifactRoot := testTree(t)
	r := NewResolver(webRoot)

	assert.True(t, r.Exists(artifactRoot))
	assert.False(t, r.Exists(filepath.Join(t.TempDir(), "never-rendered")))
}
