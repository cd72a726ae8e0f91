package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"mapserve/internal/artifact"
	"mapserve/internal/httpkit"
	pkgerrors "mapserve/internal/pkg/errors"
	"mapserve/internal/render"
)

// ServeMap serves the BlueMap webapp, the synthesized settings.json and the
// artifact tree of the active map. Tile requests for a map that has not been
// rendered yet trigger a coalesced on-demand render when one is configured.
func (h *Handler) ServeMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	artifactRoot := h.store.Artifact(h.cfg.MapName)

	if h.onDemand != nil && wantsArtifact(r.URL.Path) && !h.resolver.Exists(artifactRoot) {
		if err := h.coalescer.Render(ctx, *h.onDemand); err != nil {
			h.writeRenderError(w, r, err)
			return
		}
	}

	res := h.resolver.Resolve(artifactRoot, r.URL.Path)
	switch res.Kind {
	case artifact.SettingsDoc:
		httpkit.WriteJSON(w, 200, res.Settings)

	case artifact.File:
		h.serveFile(w, r, res)

	default:
		httpkit.WriteErr(w, 404, "NOT_FOUND", "no such file", map[string]any{"path": r.URL.Path})
	}
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, res artifact.Resolution) {
	f, err := os.Open(res.Path)
	if err != nil {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "no such file", map[string]any{"path": r.URL.Path})
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "stat failed", nil)
		return
	}

	if res.GzipEncoded {
		w.Header().Set("Content-Encoding", "gzip")
	}
	// ServeContent derives Content-Type from the logical name, so a .gz
	// sidecar is typed as the file it stands in for.
	http.ServeContent(w, r, res.Name, st.ModTime(), f)
}

func (h *Handler) writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log.FromContext(r.Context())

	var rerr *render.Error
	if !errors.As(err, &rerr) {
		log.Error("on-demand render failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "render failed", nil)
		return
	}

	// DestinationExists means another path published the artifact first;
	// everything else is a real failure.
	if rerr.Kind == render.FailureDestinationExists {
		log.Warn("on-demand render raced an existing artifact")
	} else {
		log.Error("on-demand render failed",
			"kind", string(rerr.Kind),
			"error", rerr.Error(),
		)
	}

	code := rerr.Code()
	status := (&pkgerrors.Error{Code: code}).HTTPStatus()
	httpkit.WriteErr(w, status, string(code), rerr.Error(), map[string]any{"kind": string(rerr.Kind)})
}

// wantsArtifact reports whether the request path needs a rendered artifact.
// The webapp shell and the synthesized settings document never do.
func wantsArtifact(reqPath string) bool {
	return strings.HasPrefix(strings.TrimPrefix(reqPath, "/"), "maps/")
}
