package diagram

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Language is the fenced code block info string that marks a diagram.
const Language = "diagram"

// KindBlock is the AST kind of a rendered diagram.
var KindBlock = ast.NewNodeKind("DiagramBlock")

// Block replaces a diagram fenced block once its body parsed.
type Block struct {
	ast.BaseBlock

	SVG string
}

// Kind implements ast.Node.
func (b *Block) Kind() ast.NodeKind { return KindBlock }

// IsRaw implements ast.Node.
func (b *Block) IsRaw() bool { return true }

// Dump implements ast.Node.
func (b *Block) Dump(source []byte, level int) {
	ast.DumpHelper(b, source, level, nil, nil)
}

// Transformer swaps well-formed diagram blocks for Block nodes. Blocks
// that fail to parse are left alone and render as ordinary code.
type Transformer struct{}

// Transform implements parser.ASTTransformer.
func (Transformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var found []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if string(fcb.Language(source)) == Language {
			found = append(found, fcb)
		}
		return ast.WalkSkipChildren, nil
	})

	for _, fcb := range found {
		var body strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(source))
		}

		d, err := Parse(body.String())
		if err != nil {
			continue
		}
		svg, err := d.SVG()
		if err != nil {
			continue
		}

		parent := fcb.Parent()
		parent.ReplaceChild(parent, fcb, &Block{SVG: svg})
	}
}

// NodeRenderer writes Block nodes.
type NodeRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *NodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindBlock, r.renderBlock)
}

func (r *NodeRenderer) renderBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	b := node.(*Block)
	_, _ = w.WriteString(`<figure class="tatum-diagram">`)
	_, _ = w.WriteString(b.SVG)
	_, _ = w.WriteString("</figure>\n")

	return ast.WalkSkipChildren, nil
}

// Extension registers the diagram transformer and renderer.
var Extension goldmark.Extender = &extender{}

type extender struct{}

func (*extender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(Transformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&NodeRenderer{}, 100),
	))
}
