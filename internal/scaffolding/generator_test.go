package scaffolding

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()

	g := NewGenerator(t.TempDir())
	g.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	return g
}

func TestInit(t *testing.T) {
	g := newTestGenerator(t)

	created, err := g.Init()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(g.TemplatesDir(), BluetotTemplate),
		filepath.Join(g.TemplatesDir(), DefaultTemplate),
	}, created)

	for _, dir := range created {
		for _, file := range []string{"page.html", "style.css", "katex-macros.js", "header.tex", "template.yaml"} {
			assert.FileExists(t, filepath.Join(dir, file))
		}
	}

	manifest, err := os.ReadFile(filepath.Join(g.TemplatesDir(), DefaultTemplate, templates.ManifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "Generated by tatum on 2024-03-01")
}

func TestInitTwice(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.Init()
	require.NoError(t, err)

	_, err = g.Init()
	require.Error(t, err)
	assert.True(t, terrors.Is(err, &terrors.TatumError{Kind: terrors.KindValidation, Code: terrors.CodeAlreadyExists}))
}

func TestBuiltinTemplatesResolve(t *testing.T) {
	g := newTestGenerator(t)
	_, err := g.Init()
	require.NoError(t, err)

	testCases := []struct {
		name  string
		style string
	}{
		{DefaultTemplate, "github"},
		{BluetotTemplate, "friendly"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := templates.Resolve(filepath.Join(g.TemplatesDir(), tc.name))
			require.NoError(t, err)

			assert.Equal(t, tc.name, tpl.Name)
			assert.Equal(t, tc.style, tpl.HighlightStyle)
			assert.Contains(t, tpl.Macros, "window.katexMacros")
			assert.NotEmpty(t, tpl.Stylesheet)
			assert.Contains(t, tpl.Page().Slots(), "Body")

			html, err := templates.Assemble(tpl, templates.Page{Title: "T", Body: "<p>x</p>", LiveReload: true, WatchPath: "/doc.md"})
			require.NoError(t, err)
			assert.Contains(t, html, "<title>T</title>")
			assert.Contains(t, html, "<p>x</p>")
			assert.Contains(t, html, "auto-render.min.js")
			assert.Contains(t, html, "/watch?path=")

			quiet, err := templates.Assemble(tpl, templates.Page{Title: "T", Body: "<p>x</p>"})
			require.NoError(t, err)
			assert.NotContains(t, quiet, "/watch?path=")
		})
	}
}

func TestNew(t *testing.T) {
	g := newTestGenerator(t)
	_, err := g.Init()
	require.NoError(t, err)

	dir, err := g.New("lecture-notes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.TemplatesDir(), "lecture-notes"), dir)

	tpl, err := templates.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, "lecture-notes", tpl.Name)
	assert.Equal(t, "Copy of the default template", tpl.Description)

	_, err = g.New("lecture-notes")
	assert.True(t, terrors.Is(err, &terrors.TatumError{Kind: terrors.KindValidation, Code: terrors.CodeAlreadyExists}))
}

func TestNewBeforeInit(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.New("notes")
	require.Error(t, err)
	assert.True(t, terrors.Is(err, &terrors.TatumError{Kind: terrors.KindValidation, Code: terrors.CodeNotInitialized}))
	assert.Contains(t, terrors.Hint(err), "tatum init")
	assert.NoDirExists(t, g.TemplatesDir())
}

func TestValidateTemplateName(t *testing.T) {
	testCases := []struct {
		name  string
		valid bool
	}{
		{"notes", true},
		{"my_notes-2.v1", true},
		{"", false},
		{".hidden", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"with space", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTemplateName(tc.name)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, terrors.Is(err, terrors.ErrValidation))
		})
	}
}

func TestList(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.List()
	assert.True(t, terrors.Is(err, terrors.ErrValidation))

	_, err = g.Init()
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(g.TemplatesDir(), ".cache"), 0o755))
	broken := filepath.Join(g.TemplatesDir(), "broken")
	require.NoError(t, os.Mkdir(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, templates.ManifestFile), []byte("highlight_style: nope\n"), 0o644))

	infos, err := g.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, BluetotTemplate, infos[0].Name)
	assert.Equal(t, "broken", infos[1].Name)
	assert.True(t, strings.HasPrefix(infos[1].Description, "invalid manifest"))
	assert.Equal(t, DefaultTemplate, infos[2].Name)
	assert.Equal(t, "Plain serif article layout", infos[2].Description)
}

func TestPackageHelpers(t *testing.T) {
	root := t.TempDir()

	created, err := Init(root)
	require.NoError(t, err)
	assert.Len(t, created, len(BuiltinTemplates()))

	dir, err := New(root, "thesis")
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
