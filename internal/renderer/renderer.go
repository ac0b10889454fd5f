// Package renderer composes template resolution, document compilation and
// page assembly into the single render entry point used by the preview
// server and the render command.
package renderer

import (
	"context"

	"github.com/conneroisu/tatum/internal/compiler"
	"github.com/conneroisu/tatum/internal/logging"
	"github.com/conneroisu/tatum/internal/templates"
)

// Renderer renders documents into complete HTML pages.
type Renderer struct {
	cache    *templates.Cache
	compiler *compiler.Compiler
	logger   logging.Logger
}

// New creates a Renderer. A nil cache or compiler gets a fresh one and a
// nil logger discards output.
func New(cache *templates.Cache, c *compiler.Compiler, logger logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.Nop()
	}
	if cache == nil {
		cache = templates.NewCache()
	}
	if c == nil {
		c = compiler.New(logger)
	}

	return &Renderer{
		cache:    cache,
		compiler: c,
		logger:   logger.WithComponent("renderer"),
	}
}

// Cache returns the template cache backing the renderer.
func (r *Renderer) Cache() *templates.Cache {
	return r.cache
}

// RenderDoc resolves the template at templateDir, compiles the document at
// path and assembles the page. The first failure is returned unchanged.
// With liveReload set the page carries a client that watches path.
func (r *Renderer) RenderDoc(ctx context.Context, path string, liveReload bool, templateDir string) (string, error) {
	perf := logging.StartOperation(r.logger.With("path", path), "render_doc")

	tpl, err := r.cache.Get(ctx, templateDir)
	if err != nil {
		perf.EndWithError(ctx, err)
		return "", err
	}

	doc, err := r.compiler.Compile(ctx, path, tpl.HighlightStyle)
	if err != nil {
		perf.EndWithError(ctx, err)
		return "", err
	}

	out, err := templates.Assemble(tpl, templates.Page{
		Title:      doc.Title,
		Body:       doc.Body,
		LiveReload: liveReload,
		WatchPath:  path,
	})
	if err != nil {
		perf.EndWithError(ctx, err)
		return "", err
	}

	perf.End(ctx)

	return out, nil
}
