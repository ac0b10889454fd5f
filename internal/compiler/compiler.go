// Package compiler converts a markdown document into an HTML body fragment
// and a title.
//
// Documents are local files opened by their author, so raw HTML is passed
// through. Code is highlighted with inline chroma styles and ```diagram
// blocks become inline SVG, which keeps the assembled page self-contained.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/conneroisu/tatum/internal/diagram"
	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/logging"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// DefaultStyle is used when Compile is given no highlight style.
const DefaultStyle = "github"

var errInvalidUTF8 = errors.New("document is not valid UTF-8")

// Document is a compiled source document.
type Document struct {
	Path  string
	Title string
	Body  string
}

// Compiler compiles documents. One goldmark engine is built per highlight
// style and reused; engines are safe for concurrent use.
type Compiler struct {
	logger  logging.Logger
	mu      sync.Mutex
	engines map[string]goldmark.Markdown
}

// New returns a Compiler. A nil logger discards output.
func New(logger logging.Logger) *Compiler {
	if logger == nil {
		logger = logging.Nop()
	}

	return &Compiler{
		logger:  logger.WithComponent("compiler"),
		engines: make(map[string]goldmark.Markdown),
	}
}

func (c *Compiler) engine(style string) goldmark.Markdown {
	c.mu.Lock()
	defer c.mu.Unlock()

	if md, ok := c.engines[style]; ok {
		return md
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			diagram.Extension,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	c.engines[style] = md

	return md
}

// Compile reads the document at path and converts it with the given
// highlight style.
func (c *Compiler) Compile(ctx context.Context, path, style string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, terrors.NewDocumentNotFound(path, err)
	}
	if info.IsDir() {
		e := terrors.NewDocumentNotFound(path, errors.New("is a directory"))
		e.Code = terrors.CodeNotAFile
		return nil, e
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, terrors.NewDocumentNotFound(path, err)
	}

	if style == "" {
		style = DefaultStyle
	}

	type result struct {
		doc *Document
		err error
	}
	done := make(chan result, 1)

	go func() {
		doc, err := c.convert(path, raw, style)
		done <- result{doc: doc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			c.logger.Warn(ctx, r.err, "Compilation failed", "path", path)
		}
		return r.doc, r.err
	}
}

func (c *Compiler) convert(path string, raw []byte, style string) (*Document, error) {
	if !utf8.Valid(raw) {
		return nil, terrors.NewConversionError(path, errInvalidUTF8)
	}

	src := strings.ReplaceAll(string(raw), "\r\n", "\n")
	src = norm.NFC.String(src)
	src, stash := protectMath(src)

	source := []byte(src)
	md := c.engine(style)
	root := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, root); err != nil {
		return nil, terrors.NewConversionError(path, err)
	}

	title, ok := firstHeading(root, source)
	if ok {
		title = stash.restore(title, false)
	} else {
		title = baseName(path)
	}

	return &Document{
		Path:  path,
		Title: title,
		Body:  stash.restore(buf.String(), true),
	}, nil
}

// firstHeading returns the plain text of the first level 1 heading.
func firstHeading(root ast.Node, source []byte) (string, bool) {
	var heading *ast.Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			heading = h
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if heading == nil {
		return "", false
	}

	var sb strings.Builder
	collectText(heading, source, &sb)

	return strings.TrimSpace(sb.String()), true
}

func collectText(n ast.Node, source []byte, sb *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			collectText(c, source, sb)
		}
	}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
