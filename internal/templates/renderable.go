package templates

import (
	"html/template"
	"io"
	"sort"
	"text/template/parse"
)

// Renderable is a parameterised skeleton with named substitution slots.
// The page skeleton and the diagram skeleton both implement it.
type Renderable interface {
	// Slots returns the field names the skeleton references, sorted and
	// de-duplicated. Only the first identifier of a chain is reported.
	Slots() []string
	// Render executes the skeleton against data.
	Render(w io.Writer, data any) error
}

// Skeleton is the html/template backed Renderable.
type Skeleton struct {
	name string
	tmpl *template.Template
}

// NewSkeleton parses src as an html/template named name. Associated
// templates already defined on base (may be nil) are kept so src can
// call them with {{template "..."}}.
func NewSkeleton(name, src string, base *template.Template) (*Skeleton, error) {
	var t *template.Template
	if base != nil {
		t = base.New(name)
	} else {
		t = template.New(name)
	}

	t, err := t.Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, err
	}

	return &Skeleton{name: name, tmpl: t}, nil
}

// MustSkeleton is NewSkeleton for sources compiled into the binary.
func MustSkeleton(name, src string) *Skeleton {
	s, err := NewSkeleton(name, src, nil)
	if err != nil {
		panic(err)
	}

	return s
}

// Name returns the skeleton's template name.
func (s *Skeleton) Name() string {
	return s.name
}

// Render implements Renderable.
func (s *Skeleton) Render(w io.Writer, data any) error {
	return s.tmpl.ExecuteTemplate(w, s.name, data)
}

// Slots implements Renderable.
func (s *Skeleton) Slots() []string {
	seen := make(map[string]struct{})
	if s.tmpl.Tree != nil && s.tmpl.Tree.Root != nil {
		collectFields(s.tmpl.Tree.Root, seen)
	}

	slots := make([]string, 0, len(seen))
	for name := range seen {
		slots = append(slots, name)
	}
	sort.Strings(slots)

	return slots
}

func collectFields(node parse.Node, seen map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectFields(child, seen)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, seen)
	case *parse.IfNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.TemplateNode:
		if n.Pipe != nil {
			collectFields(n.Pipe, seen)
		}
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			collectFields(cmd, seen)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			collectFields(arg, seen)
		}
	case *parse.ChainNode:
		collectFields(n.Node, seen)
	case *parse.FieldNode:
		if len(n.Ident) > 0 {
			seen[n.Ident[0]] = struct{}{}
		}
	}
}

func collectBranch(n *parse.BranchNode, seen map[string]struct{}) {
	collectFields(n.Pipe, seen)
	if n.List != nil {
		collectFields(n.List, seen)
	}
	if n.ElseList != nil {
		collectFields(n.ElseList, seen)
	}
}
