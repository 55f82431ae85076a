package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"ccproxy-hq/ccproxy/pkg/proxy"
	"ccproxy-hq/ccproxy/pkg/proxy/types"
)

// StaticHandler serves the web UI and the docs page from disk. Files are
// read per request so edits show up without a restart.
type StaticHandler struct {
	webDir  string
	docsDir string
	logger  *slog.Logger
}

// NewStaticHandler creates a handler serving from webDir and docsDir.
func NewStaticHandler(webDir, docsDir string, logger *slog.Logger) *StaticHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticHandler{
		webDir:  webDir,
		docsDir: docsDir,
		logger:  logger.With("component", "handlers.static"),
	}
}

// Index serves index.html from the web directory.
func (h *StaticHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, filepath.Join(h.webDir, "index.html"), "text/html; charset=utf-8")
}

// AppJS serves app.js from the web directory.
func (h *StaticHandler) AppJS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, filepath.Join(h.webDir, "app.js"), "application/javascript; charset=utf-8")
}

// Styles serves styles.css from the web directory.
func (h *StaticHandler) Styles(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, filepath.Join(h.webDir, "styles.css"), "text/css; charset=utf-8")
}

// Docs serves index.html from the docs directory.
func (h *StaticHandler) Docs(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, filepath.Join(h.docsDir, "index.html"), "text/html; charset=utf-8")
}

func (h *StaticHandler) serve(w http.ResponseWriter, r *http.Request, path, contentType string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(r.Context(), "failed to read static file", "path", path, "error", err)
		}
		_ = proxy.WriteError(w, http.StatusNotFound, types.CodeNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
