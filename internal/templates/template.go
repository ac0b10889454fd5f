// Package templates loads template directories and assembles final pages.
//
// A template directory holds a page skeleton (html/template syntax with
// the slots .Title, .Body, .Stylesheet, .Macros and .LiveReload), an
// optional stylesheet, an optional KaTeX macro script and an optional
// template.yaml manifest. Resolve compiles a directory into an immutable
// *Template; Cache shares resolved templates across concurrent requests;
// Assemble fills the skeleton for one document.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	terrors "github.com/conneroisu/tatum/internal/errors"
)

// Template is a resolved template directory. It is immutable after
// Resolve returns and safe for concurrent use.
type Template struct {
	Dir            string
	Name           string
	Description    string
	HighlightStyle string
	Stylesheet     string
	Macros         string

	skeletonPath string
	page         *Skeleton
}

// Page returns the compiled page skeleton.
func (t *Template) Page() Renderable {
	return t.page
}

// SkeletonPath returns the absolute path of the page skeleton file.
func (t *Template) SkeletonPath() string {
	return t.skeletonPath
}

// NormalizePath returns the cache key for a template directory.
func NormalizePath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	return filepath.Clean(abs), nil
}

// Resolve loads and compiles the template directory at dir.
//
// A missing or unreadable directory fails with TemplateNotFound. A missing
// skeleton fails with AssetMissing and an unreadable one with
// TemplateNotFound. The stylesheet and macro script are optional and
// resolve to "" when absent.
func Resolve(dir string) (*Template, error) {
	abs, err := NormalizePath(dir)
	if err != nil {
		return nil, terrors.NewTemplateNotFound(dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, terrors.NewTemplateNotFound(abs, err)
	}
	if !info.IsDir() {
		return nil, terrors.NewTemplateNotFound(abs, fmt.Errorf("not a directory"))
	}

	manifest, err := LoadManifest(abs)
	if err != nil {
		return nil, terrors.NewTemplateRenderError(terrors.CodeManifestInvalid, filepath.Join(abs, ManifestFile), err)
	}

	skeletonPath := filepath.Join(abs, manifest.Skeleton)
	src, err := os.ReadFile(skeletonPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, terrors.NewAssetMissing(skeletonPath, "page skeleton missing")
		}
		return nil, terrors.NewTemplateNotFound(skeletonPath, err)
	}

	stylesheet, err := readOptional(filepath.Join(abs, manifest.Stylesheet))
	if err != nil {
		return nil, terrors.NewTemplateNotFound(filepath.Join(abs, manifest.Stylesheet), err)
	}

	macros, err := readOptional(filepath.Join(abs, manifest.Macros))
	if err != nil {
		return nil, terrors.NewTemplateNotFound(filepath.Join(abs, manifest.Macros), err)
	}

	page, err := newPageSkeleton(string(src))
	if err != nil {
		return nil, terrors.NewTemplateRenderError(terrors.CodeSkeletonParse, skeletonPath, err)
	}

	return &Template{
		Dir:            abs,
		Name:           manifest.Name,
		Description:    manifest.Description,
		HighlightStyle: manifest.HighlightStyle,
		Stylesheet:     stylesheet,
		Macros:         macros,
		skeletonPath:   skeletonPath,
		page:           page,
	}, nil
}

// readOptional returns "" for a file that does not exist.
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	return string(data), nil
}
