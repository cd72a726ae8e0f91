// Package config holds environment-driven configuration for mapserve.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the master configuration shared by the server and the worker.
type Config struct {
	// HTTPPort is the port the HTTP server listens on.
	HTTPPort string

	// WebRoot is the BlueMap webapp root (index.html, assets/, lang/).
	// The renderer publishes its raw output under WebRoot/maps/<id>.
	WebRoot string
	// ConfigRoot is the renderer's config tree; per-render map configs are
	// written under ConfigRoot/maps.
	ConfigRoot string
	// RendererJar is the path to the BlueMap CLI jar.
	RendererJar string
	// JavaBin is the java executable used to run the renderer.
	JavaBin string
	// UnzipBin is the archive extraction tool.
	UnzipBin string
	// StagingRoot holds per-render staging zips and extraction directories.
	StagingRoot string
	// ArtifactsRoot holds published artifact trees, one directory per map.
	ArtifactsRoot string

	// MapName is the active artifact served under /maps/<name> and listed
	// in the synthesized settings.json.
	MapName string
	// MapSource, MapTemplate and MapDimension configure on-demand rendering
	// of the active map. On-demand rendering is disabled when MapSource is
	// empty.
	MapSource    string
	MapTemplate  string
	MapDimension string

	// Precompress enables the post-publish gzip sidecar pass over tile files.
	Precompress bool

	// DatabaseURL and RedisAddr back the render/archive registry and the
	// render queue. Required by the API server and the worker.
	DatabaseURL string
	RedisAddr   string
	// QueueName is the redis list used for queued renders.
	QueueName string
}

// Load builds a Config from the environment.
func Load() Config {
	return Config{
		HTTPPort:      Env("HTTP_PORT", "8080"),
		WebRoot:       Env("WEB_ROOT", "web"),
		ConfigRoot:    Env("RENDERER_CONFIG_ROOT", "config"),
		RendererJar:   Env("RENDERER_JAR", "bluemap.jar"),
		JavaBin:       Env("JAVA_BIN", "java"),
		UnzipBin:      Env("UNZIP_BIN", "unzip"),
		StagingRoot:   Env("STAGING_ROOT", "staging"),
		ArtifactsRoot: Env("ARTIFACTS_ROOT", "artifacts"),
		MapName:       Env("MAP_NAME", "world"),
		MapSource:     Env("MAP_SOURCE", ""),
		MapTemplate:   Env("MAP_TEMPLATE", ""),
		MapDimension:  Env("MAP_DIMENSION", "overworld"),
		Precompress:   BoolEnv("PRECOMPRESS_TILES", false),
		DatabaseURL:   Env("DATABASE_URL", ""),
		RedisAddr:     Env("REDIS_ADDR", ""),
		QueueName:     Env("RENDER_QUEUE_NAME", "mapserve:renders"),
	}
}

// Env reads an env var with a default value.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// MustEnv reads a required env var or panics.
func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

// BoolEnv reads an env var as bool. If empty or invalid, returns def.
// strconv.ParseBool accepts: 1,t,T,TRUE,true,True,0,f,F,FALSE,false,False.
func BoolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvCSV reads a comma-separated env var, trimming blanks.
func EnvCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
