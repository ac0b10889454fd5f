package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional per-template descriptor.
const ManifestFile = "template.yaml"

// Default asset names used when the manifest is absent or silent.
const (
	DefaultSkeleton       = "page.html"
	DefaultStylesheet     = "style.css"
	DefaultMacros         = "katex-macros.js"
	DefaultHighlightStyle = "github"
)

// Manifest describes a template directory. Every field is optional.
type Manifest struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Skeleton       string `yaml:"skeleton"`
	Stylesheet     string `yaml:"stylesheet"`
	Macros         string `yaml:"macros"`
	HighlightStyle string `yaml:"highlight_style"`
}

// LoadManifest reads dir/template.yaml. A missing file yields the default
// manifest.
func LoadManifest(dir string) (*Manifest, error) {
	m := &Manifest{}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading %s: %w", ManifestFile, err)
	}

	m.applyDefaults(dir)
	if err := m.validate(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manifest) applyDefaults(dir string) {
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	if m.Skeleton == "" {
		m.Skeleton = DefaultSkeleton
	}
	if m.Stylesheet == "" {
		m.Stylesheet = DefaultStylesheet
	}
	if m.Macros == "" {
		m.Macros = DefaultMacros
	}
	if m.HighlightStyle == "" {
		m.HighlightStyle = DefaultHighlightStyle
	}
}

func (m *Manifest) validate() error {
	for field, name := range map[string]string{
		"skeleton":   m.Skeleton,
		"stylesheet": m.Stylesheet,
		"macros":     m.Macros,
	} {
		if err := validateAssetName(name); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	if _, ok := styles.Registry[strings.ToLower(m.HighlightStyle)]; !ok {
		return fmt.Errorf("highlight_style: unknown chroma style %q", m.HighlightStyle)
	}

	return nil
}

// validateAssetName keeps asset references inside the template directory.
func validateAssetName(name string) error {
	if filepath.IsAbs(name) {
		return fmt.Errorf("asset path %q must be relative", name)
	}

	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("asset path %q escapes the template directory", name)
	}

	return nil
}
