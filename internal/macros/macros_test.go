package macros

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bluetotScript = `window.katexMacros = {
    "\\R": "\\mathbb{R}",
    "\\C": "\\mathbb{C}",
    "\\Q":"\\mathbb{Q}",
    "\\Z": "\\mathbb{Z}",
    "\\N": "\\mathbb{N}",
    "\\v": ["\\vec{#1}", 1],
    "\\b": ["\\textbf{#1}", 1]
};
`

func TestParse(t *testing.T) {
	macros, err := Parse(bluetotScript)
	require.NoError(t, err)

	assert.Equal(t, []Macro{
		{Name: `\R`, Body: `\mathbb{R}`},
		{Name: `\C`, Body: `\mathbb{C}`},
		{Name: `\Q`, Body: `\mathbb{Q}`},
		{Name: `\Z`, Body: `\mathbb{Z}`},
		{Name: `\N`, Body: `\mathbb{N}`},
		{Name: `\v`, Body: `\vec{#1}`, Args: 1},
		{Name: `\b`, Body: `\textbf{#1}`, Args: 1},
	}, macros)
}

func TestParseVariants(t *testing.T) {
	testCases := []struct {
		name     string
		script   string
		expected []Macro
	}{
		{"bare object", `{"\\R": "\\mathbb{R}"}`, []Macro{{Name: `\R`, Body: `\mathbb{R}`}}},
		{"without window", `katexMacros = {"\\R": "\\mathbb{R}"};`, []Macro{{Name: `\R`, Body: `\mathbb{R}`}}},
		{"tabs", "window.katexMacros = {\n\t\"\\\\R\": \"\\\\mathbb{R}\"\n};", []Macro{{Name: `\R`, Body: `\mathbb{R}`}}},
		{"semicolon in body", `{"\\semi": "a;b"}`, []Macro{{Name: `\semi`, Body: "a;b"}}},
		{"two arguments", `{"\\pair": ["\\langle #1, #2 \\rangle", 2]}`, []Macro{{Name: `\pair`, Body: `\langle #1, #2 \rangle`, Args: 2}}},
		{"empty object", `window.katexMacros = {};`, []Macro{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			macros, err := Parse(tc.script)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, macros)
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name   string
		script string
	}{
		{"empty", "   "},
		{"array", `["\\R"]`},
		{"not backslash", `{"R": "\\mathbb{R}"}`},
		{"bad args", `{"\\v": ["\\vec{#1}", "one"]}`},
		{"too many args", `{"\\v": ["\\vec{#1}", 12]}`},
		{"nested object", `{"\\v": {"body": "x"}}`},
		{"three element array", `{"\\v": ["a", 1, 2]}`},
		{"unterminated", `{"\\R": "\\mathbb{R}"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.script)
			assert.Error(t, err)
		})
	}
}

func TestWriteTeX(t *testing.T) {
	testCases := []struct {
		name     string
		macro    Macro
		expected string
	}{
		{
			name:     "no arguments",
			macro:    Macro{Name: `\R`, Body: `\mathbb{R}`},
			expected: `\providecommand{\R}{}\renewcommand{\R}{\mathbb{R}}`,
		},
		{
			name:     "predefined vector accent",
			macro:    Macro{Name: `\v`, Body: `\vec{#1}`, Args: 1},
			expected: `\providecommand{\v}{}\renewcommand{\v}[1]{\vec{#1}}`,
		},
		{
			name:     "predefined bar accent",
			macro:    Macro{Name: `\b`, Body: `\textbf{#1}`, Args: 1},
			expected: `\providecommand{\b}{}\renewcommand{\b}[1]{\textbf{#1}}`,
		},
		{
			name:     "two arguments",
			macro:    Macro{Name: `\pair`, Body: `(#1, #2)`, Args: 2},
			expected: `\providecommand{\pair}{}\renewcommand{\pair}[2]{(#1, #2)}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.macro.TeX())
			assert.NotContains(t, tc.macro.TeX(), `\newcommand`)
		})
	}

	var buf bytes.Buffer
	err := WriteTeX(&buf, []Macro{testCases[0].macro, testCases[1].macro})
	require.NoError(t, err)
	assert.Equal(t, testCases[0].expected+"\n"+testCases[1].expected+"\n", buf.String())
}

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "katex-macros.js"), []byte(bluetotScript), 0o644))

	macros, err := Compile(dir)
	require.NoError(t, err)
	assert.Len(t, macros, 7)

	tex, err := os.ReadFile(filepath.Join(dir, OutputFile))
	require.NoError(t, err)
	assert.Contains(t, string(tex), "\\providecommand{\\Z}{}\\renewcommand{\\Z}{\\mathbb{Z}}\n")
	assert.Contains(t, string(tex), "\\providecommand{\\v}{}\\renewcommand{\\v}[1]{\\vec{#1}}\n")
	assert.Contains(t, string(tex), "\\providecommand{\\b}{}\\renewcommand{\\b}[1]{\\textbf{#1}}\n")
	assert.NotContains(t, string(tex), "\\newcommand")
}

func TestCompileUsesManifestScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "template.yaml"), []byte("macros: tex/macros.js\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tex"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tex", "macros.js"), []byte(`{"\\E": "\\mathbb{E}"}`), 0o644))

	macros, err := Compile(dir)
	require.NoError(t, err)
	assert.Equal(t, []Macro{{Name: `\E`, Body: `\mathbb{E}`}}, macros)
}

func TestCompileFailures(t *testing.T) {
	t.Run("missing script", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Compile(dir)
		assert.True(t, terrors.Is(err, terrors.ErrAssetMissing))
		assert.NoFileExists(t, filepath.Join(dir, OutputFile))
	})

	t.Run("malformed script", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "katex-macros.js"), []byte("window.katexMacros = [1, 2];"), 0o644))
		_, err := Compile(dir)
		assert.True(t, terrors.Is(err, terrors.ErrConversion))
		assert.NoFileExists(t, filepath.Join(dir, OutputFile))
	})

	t.Run("unwritable output", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "katex-macros.js"), []byte(bluetotScript), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, OutputFile), 0o755))

		_, err := Compile(dir)
		require.Error(t, err)
		assert.Equal(t, terrors.KindInternal, terrors.KindOf(err))
		assert.Contains(t, err.Error(), "failed to write "+OutputFile)

		var te *terrors.TatumError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, filepath.Join(dir, OutputFile), te.Path)
		assert.NotNil(t, te.Cause)
	})
}
