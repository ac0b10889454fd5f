// Package diagram turns the small arrow-chain language used in ```diagram
// fenced blocks into inline SVG.
//
// Each non-empty line is a chain of labelled nodes joined by "->":
//
//	parse -> compile -> assemble
//	compile -> diagram
//
// Nodes are identified by label. A node sits in the row of the first line
// that mentions it, in the column of its position in that line. Lines
// starting with '#' are comments.
package diagram

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"html/template"
	"math"
	"strings"

	"github.com/conneroisu/tatum/internal/templates"
	"github.com/mattn/go-runewidth"
)

// Geometry, in SVG user units.
const (
	margin     = 12
	boxHeight  = 32
	hGap       = 48
	vGap       = 28
	cellWidth  = 8
	boxPadding = 24
	minBox     = 48
	maxNodes   = 200
	arrowToken = "->"
)

// ErrEmpty is returned by Parse for a block without any node.
var ErrEmpty = errors.New("diagram has no nodes")

// Node is a positioned box.
type Node struct {
	Label  string
	Row    int
	Col    int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Edge joins two nodes by index into Diagram.Nodes.
type Edge struct {
	From int
	To   int
}

// Diagram is a parsed and laid out block.
type Diagram struct {
	Nodes  []Node
	Edges  []Edge
	Width  float64
	Height float64
	source string
}

// Parse reads a diagram body and lays it out.
func Parse(body string) (*Diagram, error) {
	d := &Diagram{source: body}
	index := make(map[string]int)
	seenEdge := make(map[Edge]bool)
	row := 0

	for lineNo, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		labels := strings.Split(line, arrowToken)
		introduced := false
		prev := -1
		for col, label := range labels {
			label = strings.TrimSpace(label)
			if label == "" {
				return nil, fmt.Errorf("line %d: empty node label", lineNo+1)
			}

			id, ok := index[label]
			if !ok {
				if len(d.Nodes) == maxNodes {
					return nil, fmt.Errorf("line %d: more than %d nodes", lineNo+1, maxNodes)
				}
				id = len(d.Nodes)
				index[label] = id
				d.Nodes = append(d.Nodes, Node{Label: label, Row: row, Col: col})
				introduced = true
			}

			if prev >= 0 {
				if prev == id {
					return nil, fmt.Errorf("line %d: %q points to itself", lineNo+1, label)
				}
				e := Edge{From: prev, To: id}
				if !seenEdge[e] {
					seenEdge[e] = true
					d.Edges = append(d.Edges, e)
				}
			}
			prev = id
		}

		if introduced {
			row++
		}
	}

	if len(d.Nodes) == 0 {
		return nil, ErrEmpty
	}

	d.layout()

	return d, nil
}

func (d *Diagram) layout() {
	colWidths := make(map[int]float64)
	maxCol, maxRow := 0, 0
	for i := range d.Nodes {
		n := &d.Nodes[i]
		n.Width = math.Max(minBox, float64(runewidth.StringWidth(n.Label)*cellWidth+boxPadding))
		n.Height = boxHeight
		if n.Width > colWidths[n.Col] {
			colWidths[n.Col] = n.Width
		}
		maxCol = max(maxCol, n.Col)
		maxRow = max(maxRow, n.Row)
	}

	colX := make([]float64, maxCol+1)
	x := float64(margin)
	for c := 0; c <= maxCol; c++ {
		colX[c] = x
		x += colWidths[c] + hGap
	}

	for i := range d.Nodes {
		n := &d.Nodes[i]
		n.X = colX[n.Col] + (colWidths[n.Col]-n.Width)/2
		n.Y = float64(margin + n.Row*(boxHeight+vGap))
	}

	d.Width = x - hGap + margin
	d.Height = float64(margin*2 + (maxRow+1)*boxHeight + maxRow*vGap)
}

// boundary returns where the segment from n's centre towards (tx, ty)
// leaves n's box.
func boundary(n Node, tx, ty float64) (float64, float64) {
	cx, cy := n.X+n.Width/2, n.Y+n.Height/2
	dx, dy := tx-cx, ty-cy
	if dx == 0 && dy == 0 {
		return cx, cy
	}

	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, (n.Width/2)/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, (n.Height/2)/math.Abs(dy))
	}

	return cx + dx*t, cy + dy*t
}

type svgLine struct {
	X1, Y1, X2, Y2 string
}

type svgNode struct {
	Label        string
	X, Y, W, H   string
	TextX, TextY string
}

type svgData struct {
	MarkerID      string
	Width, Height string
	Lines         []svgLine
	Nodes         []svgNode
}

func num(f float64) string {
	return fmt.Sprintf("%.1f", f)
}

func (d *Diagram) data() svgData {
	h := fnv.New32a()
	_, _ = h.Write([]byte(d.source))

	out := svgData{
		MarkerID: fmt.Sprintf("tatum-arrow-%08x", h.Sum32()),
		Width:    num(d.Width),
		Height:   num(d.Height),
	}

	for _, e := range d.Edges {
		from, to := d.Nodes[e.From], d.Nodes[e.To]
		x1, y1 := boundary(from, to.X+to.Width/2, to.Y+to.Height/2)
		x2, y2 := boundary(to, from.X+from.Width/2, from.Y+from.Height/2)
		out.Lines = append(out.Lines, svgLine{X1: num(x1), Y1: num(y1), X2: num(x2), Y2: num(y2)})
	}

	for _, n := range d.Nodes {
		out.Nodes = append(out.Nodes, svgNode{
			Label: n.Label,
			X:     num(n.X),
			Y:     num(n.Y),
			W:     num(n.Width),
			H:     num(n.Height),
			TextX: num(n.X + n.Width/2),
			TextY: num(n.Y + n.Height/2),
		})
	}

	return out
}

// SVG renders the diagram through the diagram skeleton.
func (d *Diagram) SVG() (string, error) {
	var buf bytes.Buffer
	if err := skeleton.Render(&buf, d.data()); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Render converts a diagram body to SVG markup. It never fails: malformed
// input yields a placeholder figure carrying the parse error.
func Render(body string) string {
	d, err := Parse(body)
	if err == nil {
		var svg string
		if svg, err = d.SVG(); err == nil {
			return svg
		}
	}

	return placeholder(err)
}

func placeholder(err error) string {
	return `<figure class="tatum-diagram-error"><figcaption>diagram: ` +
		template.HTMLEscapeString(err.Error()) + `</figcaption></figure>`
}

// Skeleton exposes the diagram skeleton.
func Skeleton() templates.Renderable {
	return skeleton
}
