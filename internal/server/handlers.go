package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/a-h/templ"
	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/templates"
	"github.com/conneroisu/tatum/internal/version"
)

// maxIndexEntries bounds the document listing on the index page.
const maxIndexEntries = 500

var errOutsideRoot = errors.New("path is outside the served directory")

// resolveDocument maps the path query parameter to a file under root.
// Absolute paths are accepted when they stay inside root.
func (s *PreviewServer) resolveDocument(raw string) (string, error) {
	if raw == "" {
		return "", terrors.NewValidationError(terrors.CodeFileNotFound, "missing path parameter")
	}
	if strings.ContainsRune(raw, 0) {
		return "", terrors.NewValidationError(terrors.CodeFileNotFound, "path contains a NUL byte")
	}

	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path = filepath.Clean(path)

	if !within(s.root, path) || !within(realPath(s.root), realPath(path)) {
		return "", terrors.NewValidationError(terrors.CodePermissionDenied, errOutsideRoot.Error()+": "+raw)
	}

	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath resolves symlinks in the longest existing prefix of path, so a
// document that does not exist yet is judged by the directory it would be
// created in.
func realPath(path string) string {
	var missing []string
	for dir := path; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved
		}
		if parent := filepath.Dir(dir); parent == dir {
			return path
		}
		missing = append(missing, filepath.Base(dir))
	}
}

// displayPath is the document path relative to root, for pages and logs.
func (s *PreviewServer) displayPath(path string) string {
	if rel, err := filepath.Rel(s.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" && r.URL.Path != "/render" {
		http.NotFound(w, r)
		return
	}

	raw := r.URL.Query().Get("path")
	if raw == "" && r.URL.Path == "/" {
		s.handleIndex(w, r)
		return
	}

	path, err := s.resolveDocument(raw)
	if err != nil {
		s.renderError(w, r, raw, "", err)
		return
	}

	html, err := s.renderer.RenderDoc(r.Context(), path, true, s.config.Template.Path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug(r.Context(), "Render abandoned by client", "path", path)
			return
		}
		s.renderError(w, r, s.displayPath(path), path, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.WriteString(w, html); err != nil {
		s.logger.Debug(r.Context(), "Failed to write render response", "error", err.Error())
	}
}

// renderError writes the error page with the status the failure maps to.
// watchPath is empty when the request never named a usable document.
func (s *PreviewServer) renderError(w http.ResponseWriter, r *http.Request, doc, watchPath string, err error) {
	status := terrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Render failed", "path", doc)
	} else {
		s.logger.Warn(r.Context(), err, "Render failed", "path", doc)
	}

	view := errorView{Status: status, Doc: doc, Err: err}
	if watchPath != "" {
		if script, scriptErr := templates.LiveReloadScript(watchPath); scriptErr == nil {
			view.Reload = script
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	templ.Handler(errorPage(view), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	docs, err := listDocuments(s.root, maxIndexEntries)
	if err != nil {
		s.logger.Warn(r.Context(), err, "Failed to list documents", "root", s.root)
	}

	templ.Handler(indexPage(s.root, docs)).ServeHTTP(w, r)
}

// listDocuments returns markdown files under root as slash separated
// relative paths, skipping hidden directories.
func listDocuments(root string, limit int) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown":
		default:
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		docs = append(docs, filepath.ToSlash(rel))
		if len(docs) >= limit {
			return filepath.SkipAll
		}
		return nil
	})
	sort.Strings(docs)

	return docs, err
}

// staticHandler serves the active template directory read-only, without
// directory listings.
func (s *PreviewServer) staticHandler() http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.Template.Path)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		info, err := os.Stat(filepath.Join(s.config.Template.Path, filepath.FromSlash(strings.TrimPrefix(r.URL.Path, "/static/"))))
		if err == nil && info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// handleHealth returns the server health status for health checks
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	if s.isShutdown.Load() {
		status = "shutting_down"
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"root":      s.root,
		"template":  s.config.Template.Path,
		"sessions":  s.SessionCount(),
		"templates": s.renderer.Cache().Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Debug(r.Context(), "Failed to encode health response", "error", err.Error())
	}
}
