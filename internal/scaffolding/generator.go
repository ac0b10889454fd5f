// Package scaffolding writes the builtin template directories into a
// project's .tatum directory.
package scaffolding

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/templates"
)

// Dir is the directory, relative to the project root, holding templates.
const Dir = ".tatum"

// Generator handles template scaffolding under one project root.
type Generator struct {
	root      string
	templates map[string]TemplateSet
	now       func() time.Time
}

// NewGenerator creates a generator for the project rooted at root.
func NewGenerator(root string) *Generator {
	return &Generator{
		root:      root,
		templates: BuiltinTemplates(),
		now:       time.Now,
	}
}

// Init scaffolds the builtin templates under root.
func Init(root string) ([]string, error) {
	return NewGenerator(root).Init()
}

// New scaffolds a copy of the default template named name under root.
func New(root, name string) (string, error) {
	return NewGenerator(root).New(name)
}

// TemplatesDir returns root/.tatum.
func (g *Generator) TemplatesDir() string {
	return filepath.Join(g.root, Dir)
}

// Init creates .tatum with every builtin template and returns the created
// template directories. It fails when .tatum already exists.
func (g *Generator) Init() ([]string, error) {
	dir := g.TemplatesDir()
	if _, err := os.Stat(dir); err == nil {
		e := terrors.NewValidationError(terrors.CodeAlreadyExists, "templates directory already exists")
		return nil, e.WithPath(dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	names := make([]string, 0, len(g.templates))
	for name := range g.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	created := make([]string, 0, len(names))
	for _, name := range names {
		set := g.templates[name]
		target := filepath.Join(dir, name)
		if err := g.extract(set, name, set.Description, target); err != nil {
			return created, err
		}
		created = append(created, target)
	}

	return created, nil
}

// New copies the default template into .tatum/<name>. Init must have run
// first and the name must be free.
func (g *Generator) New(name string) (string, error) {
	if err := ValidateTemplateName(name); err != nil {
		return "", err
	}

	dir := g.TemplatesDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		e := terrors.NewValidationError(terrors.CodeNotInitialized, "templates directory does not exist")
		return "", e.WithPath(dir)
	}

	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		e := terrors.NewValidationError(terrors.CodeAlreadyExists, "template already exists")
		return "", e.WithPath(target)
	}

	set := g.templates[DefaultTemplate]
	if err := g.extract(set, name, "Copy of the default template", target); err != nil {
		return "", err
	}

	return target, nil
}

// extract writes set into target, which must not exist yet.
func (g *Generator) extract(set TemplateSet, name, description, target string) error {
	if err := os.Mkdir(target, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	ctx := TemplateContext{
		Name:           name,
		Description:    description,
		HighlightStyle: highlightStyle(set.Name),
		Date:           g.now().Format("2006-01-02"),
	}

	for file, content := range set.Files {
		path := filepath.Join(target, file)
		if file == templates.ManifestFile {
			if err := generateFile(path, content, ctx); err != nil {
				return fmt.Errorf("failed to generate %s: %w", path, err)
			}
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return nil
}

func highlightStyle(set string) string {
	if set == BluetotTemplate {
		return "friendly"
	}
	return templates.DefaultHighlightStyle
}

// generateFile generates a file from a text/template source.
func generateFile(filename, content string, ctx TemplateContext) error {
	tmpl, err := template.New(filepath.Base(filename)).Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, ctx); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return file.Close()
}

// TemplateInfo describes a scaffolded template directory.
type TemplateInfo struct {
	Name        string
	Description string
	Path        string
}

// List returns the template directories under .tatum sorted by directory
// name. Directories whose manifest cannot be read are reported with the
// error as description.
func (g *Generator) List() ([]TemplateInfo, error) {
	dir := g.TemplatesDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e := terrors.NewValidationError(terrors.CodeNotInitialized, "templates directory does not exist")
			return nil, e.WithPath(dir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var infos []TemplateInfo
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info := TemplateInfo{Name: entry.Name(), Path: path}
		manifest, err := templates.LoadManifest(path)
		if err != nil {
			info.Description = "invalid manifest: " + err.Error()
		} else {
			info.Description = manifest.Description
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// ValidateTemplateName checks that name is usable as a single directory
// name under .tatum.
func ValidateTemplateName(name string) error {
	if name == "" {
		return terrors.NewValidationError(terrors.CodeInvalidName, "template name cannot be empty")
	}

	if strings.HasPrefix(name, ".") {
		return terrors.NewValidationError(terrors.CodeInvalidName, "template name cannot start with a dot")
	}

	for _, r := range name {
		if !isNameRune(r) {
			return terrors.NewValidationError(terrors.CodeInvalidName,
				fmt.Sprintf("template name %q may only contain letters, digits, '-', '_' and '.'", name))
		}
	}

	return nil
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.'
}
