package scaffolding

// TemplateSet is a template directory compiled into the binary.
type TemplateSet struct {
	Name        string
	Description string
	// Files maps a file name inside the template directory to its
	// content. template.yaml is executed with text/template against a
	// TemplateContext; every other file is written verbatim.
	Files map[string]string
}

// TemplateContext holds the values template.yaml is generated from.
type TemplateContext struct {
	Name           string
	Description    string
	HighlightStyle string
	Date           string
}

// Builtin template names.
const (
	DefaultTemplate = "default"
	BluetotTemplate = "bluetot"
)

// BuiltinTemplates returns the template sets shipped with tatum.
func BuiltinTemplates() map[string]TemplateSet {
	return map[string]TemplateSet{
		DefaultTemplate: getDefaultTemplate(),
		BluetotTemplate: getBluetotTemplate(),
	}
}

func getDefaultTemplate() TemplateSet {
	return TemplateSet{
		Name:        DefaultTemplate,
		Description: "Plain serif article layout",
		Files: map[string]string{
			"page.html":       pageSkeleton,
			"style.css":       defaultStyle,
			"katex-macros.js": defaultMacros,
			"header.tex":      defaultHeader,
			"template.yaml":   manifestTemplate,
		},
	}
}

func getBluetotTemplate() TemplateSet {
	return TemplateSet{
		Name:        BluetotTemplate,
		Description: "Blue accented notes layout with number set macros",
		Files: map[string]string{
			"page.html":       pageSkeleton,
			"style.css":       bluetotStyle,
			"katex-macros.js": bluetotMacros,
			"header.tex":      bluetotHeader,
			"template.yaml":   manifestTemplate,
		},
	}
}

const manifestTemplate = `# Generated by tatum on {{.Date}}.
name: {{printf "%q" .Name}}
description: {{printf "%q" .Description}}
highlight_style: {{.HighlightStyle}}
skeleton: page.html
stylesheet: style.css
macros: katex-macros.js
`

// pageSkeleton is shared by the builtin templates; they differ in style
// and macros only.
const pageSkeleton = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.css">
  <script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.js"></script>
  <script defer src="https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/contrib/auto-render.min.js"></script>
  <style>{{.Stylesheet}}</style>
  <script>{{.Macros}}</script>
</head>
<body>
  <main class="page">
{{.Body}}
  </main>
  <script>
    document.addEventListener("DOMContentLoaded", function () {
      renderMathInElement(document.body, {
        delimiters: [
          {left: "$$", right: "$$", display: true},
          {left: "$", right: "$", display: false}
        ],
        macros: window.katexMacros || {},
        throwOnError: false
      });
    });
  </script>
{{if .LiveReload}}{{template "livereload" .}}{{end}}
</body>
</html>
`

const defaultStyle = `body {
  margin: 0;
  background: #fdfdfc;
  color: #1d1d1f;
  font-family: "Iowan Old Style", "Palatino Linotype", Georgia, serif;
  font-size: 18px;
  line-height: 1.6;
}

.page {
  max-width: 46rem;
  margin: 0 auto;
  padding: 3rem 1.5rem 6rem;
}

h1, h2, h3, h4 {
  line-height: 1.25;
  margin: 2rem 0 1rem;
}

h1 { font-size: 2.1rem; }
h2 { font-size: 1.6rem; border-bottom: 1px solid #e5e5e5; padding-bottom: 0.3rem; }

a { color: #0b57d0; }

pre {
  overflow-x: auto;
  padding: 1rem;
  border-radius: 4px;
  font-size: 0.85rem;
}

code {
  font-family: "JetBrains Mono", Menlo, Consolas, monospace;
}

table {
  border-collapse: collapse;
  margin: 1.5rem 0;
}

th, td {
  border: 1px solid #d0d0d0;
  padding: 0.4rem 0.8rem;
}

blockquote {
  margin: 1.5rem 0;
  padding-left: 1rem;
  border-left: 3px solid #d0d0d0;
  color: #555;
}

.tatum-diagram {
  margin: 2rem 0;
  text-align: center;
}

.tatum-diagram svg {
  max-width: 100%;
  height: auto;
}

.tatum-diagram-error figcaption {
  color: #b3261e;
  font-family: monospace;
}

.katex-display {
  overflow-x: auto;
  overflow-y: hidden;
}
`

const bluetotStyle = `:root {
  --accent: #1f4e99;
  --accent-soft: #e8eef9;
}

body {
  margin: 0;
  background: #ffffff;
  color: #1b2430;
  font-family: "Source Sans 3", "Helvetica Neue", Arial, sans-serif;
  font-size: 17px;
  line-height: 1.65;
}

.page {
  max-width: 50rem;
  margin: 0 auto;
  padding: 2.5rem 1.5rem 6rem;
}

h1 {
  color: var(--accent);
  font-size: 2.2rem;
  border-bottom: 3px solid var(--accent);
  padding-bottom: 0.4rem;
}

h2, h3 {
  color: var(--accent);
  margin-top: 2.2rem;
}

a { color: var(--accent); }

pre {
  overflow-x: auto;
  padding: 1rem;
  border-left: 4px solid var(--accent);
  font-size: 0.85rem;
}

code {
  font-family: "Fira Code", Menlo, Consolas, monospace;
}

blockquote {
  margin: 1.5rem 0;
  padding: 0.5rem 1rem;
  background: var(--accent-soft);
  border-left: 4px solid var(--accent);
}

table {
  border-collapse: collapse;
  margin: 1.5rem 0;
}

th {
  background: var(--accent);
  color: #fff;
}

th, td {
  border: 1px solid #c5d3ea;
  padding: 0.4rem 0.8rem;
}

.tatum-diagram {
  margin: 2rem 0;
  text-align: center;
}

.tatum-diagram svg rect {
  fill: var(--accent-soft);
  stroke: var(--accent);
}

.tatum-diagram-error figcaption {
  color: #b3261e;
  font-family: monospace;
}

.katex-display {
  overflow-x: auto;
  overflow-y: hidden;
}
`

const defaultMacros = `window.katexMacros = {
    "\\R": "\\mathbb{R}",
    "\\N": "\\mathbb{N}"
};
`

const bluetotMacros = `window.katexMacros = {
    "\\R": "\\mathbb{R}",
    "\\C": "\\mathbb{C}",
    "\\Q": "\\mathbb{Q}",
    "\\Z": "\\mathbb{Z}",
    "\\N": "\\mathbb{N}",
    "\\v": ["\\vec{#1}", 1],
    "\\b": ["\\textbf{#1}", 1]
};
`

const defaultHeader = `\usepackage{amsmath}
\usepackage{amssymb}
`

const bluetotHeader = `\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{xcolor}
\definecolor{accent}{HTML}{1F4E99}
\usepackage{sectsty}
\allsectionsfont{\color{accent}}
`
