// Package macros transcribes a template's KaTeX macro script into LaTeX
// command definitions, so exported documents use the same macros as
// the browser preview.
//
// The script has the shape
//
//	window.katexMacros = {
//	    "\\R": "\\mathbb{R}",
//	    "\\v": ["\\vec{#1}", 1]
//	};
//
// where a string value is a macro without arguments and a [body, n] pair
// is a macro taking n arguments.
package macros

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/templates"
	"gopkg.in/yaml.v3"
)

// OutputFile is written next to the macro script.
const OutputFile = "macros.tex"

var assignment = regexp.MustCompile(`^\s*(?:(?:window\.)?katexMacros\s*=\s*)?`)

// Macro is one macro definition.
type Macro struct {
	Name string
	Body string
	Args int
}

// TeX returns the LaTeX definition of m. The empty \providecommand makes
// the \renewcommand valid whether or not LaTeX already defines the name,
// as it does for \v and \b.
func (m Macro) TeX() string {
	if m.Args > 0 {
		return fmt.Sprintf("\\providecommand{%s}{}\\renewcommand{%s}[%d]{%s}", m.Name, m.Name, m.Args, m.Body)
	}
	return fmt.Sprintf("\\providecommand{%s}{}\\renewcommand{%s}{%s}", m.Name, m.Name, m.Body)
}

// Parse reads a macro script. Definitions keep their source order.
func Parse(script string) ([]Macro, error) {
	src := assignment.ReplaceAllString(script, "")
	src = strings.TrimSpace(src)
	src = strings.TrimSpace(strings.TrimSuffix(src, ";"))
	if src == "" {
		return nil, errors.New("macro script is empty")
	}

	// JSON object literals are valid YAML flow mappings, and yaml.v3 keeps
	// the key order.
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, fmt.Errorf("macro script is not an object literal: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("macro script is not an object literal")
	}

	mapping := doc.Content[0]
	macros := make([]Macro, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		m, err := parseMacro(key, value)
		if err != nil {
			return nil, err
		}
		macros = append(macros, m)
	}

	return macros, nil
}

func parseMacro(key, value *yaml.Node) (Macro, error) {
	if key.Kind != yaml.ScalarNode || !strings.HasPrefix(key.Value, `\`) {
		return Macro{}, fmt.Errorf("line %d: macro name %q must start with a backslash", key.Line, key.Value)
	}

	m := Macro{Name: key.Value}
	switch {
	case value.Kind == yaml.ScalarNode:
		m.Body = value.Value
	case value.Kind == yaml.SequenceNode && len(value.Content) == 2 &&
		value.Content[0].Kind == yaml.ScalarNode && value.Content[1].Kind == yaml.ScalarNode:
		n, err := strconv.Atoi(value.Content[1].Value)
		if err != nil || n < 0 || n > 9 {
			return Macro{}, fmt.Errorf("line %d: macro %s: argument count %q is not in 0-9", key.Line, m.Name, value.Content[1].Value)
		}
		m.Body = value.Content[0].Value
		m.Args = n
	default:
		return Macro{}, fmt.Errorf("line %d: macro %s has unknown format", key.Line, m.Name)
	}

	return m, nil
}

// WriteTeX writes one definition line per macro.
func WriteTeX(w io.Writer, macros []Macro) error {
	bw := bufio.NewWriter(w)
	for _, m := range macros {
		if _, err := bw.WriteString(m.TeX() + "\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Compile reads the macro script of the template in dir and writes
// dir/macros.tex. It returns the transcribed macros.
func Compile(dir string) ([]Macro, error) {
	manifest, err := templates.LoadManifest(dir)
	if err != nil {
		return nil, terrors.NewTemplateRenderError(terrors.CodeManifestInvalid, filepath.Join(dir, templates.ManifestFile), err)
	}

	scriptPath := filepath.Join(dir, manifest.Macros)
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, terrors.NewAssetMissing(scriptPath, "katex macro script missing")
		}
		return nil, terrors.NewTemplateNotFound(scriptPath, err)
	}

	macros, err := Parse(string(script))
	if err != nil {
		return nil, terrors.NewConversionError(scriptPath, err)
	}

	outPath := filepath.Join(dir, OutputFile)
	out, err := os.Create(outPath)
	if err != nil {
		return nil, writeFailed(outPath, err)
	}
	defer out.Close()

	if err := WriteTeX(out, macros); err != nil {
		return nil, writeFailed(outPath, err)
	}
	if err := out.Close(); err != nil {
		return nil, writeFailed(outPath, err)
	}

	return macros, nil
}

func writeFailed(path string, err error) error {
	return terrors.Wrap(err, terrors.KindInternal, terrors.CodeInternal, "failed to write "+OutputFile).WithPath(path)
}
