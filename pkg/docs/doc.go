// Package docs holds the user documentation for tatum.
//
// Tatum renders a markdown document with inline and display math and
// diagram blocks into one styled HTML page, and serves a live preview that
// reloads the browser when the document changes on disk.
//
// # Quick Start
//
//	// Scaffold the builtin templates into .tatum
//	tatum init
//
//	// Preview a document with live reload
//	tatum serve --open notes.md
//
//	// Write notes.html once
//	tatum render notes.md
//
// # Template Directories
//
// A template is a directory holding:
//
//   - page.html: the page skeleton, required
//   - style.css: inlined into the page, optional
//   - katex-macros.js: inlined as a script, optional
//   - header.tex: LaTeX preamble used by tatum export
//   - template.yaml: optional manifest naming the files above and the
//     code highlight style
//
// The skeleton is a Go html/template with the slots .Title, .Body,
// .Stylesheet, .Macros and .LiveReload. Writing
// {{if .LiveReload}}{{template "livereload" .}}{{end}} before </body>
// injects the reload client in preview pages only.
//
// # Documents
//
// Math between $...$ or $$...$$ is passed through untouched for KaTeX to
// typeset in the browser. A fenced block with the info string "diagram"
// holds lines of the form "a -> b -> c" and becomes an inline SVG; a block
// that does not parse is shown as code and the rest of the page still
// renders.
//
// # Live Reload
//
// Each open preview page holds a websocket on /watch?path=<document>. The
// server sends {"type":"reload"} once per burst of writes and
// {"type":"lost"} when the document disappears, then closes the session.
//
// # Configuration
//
// Settings come from flags, TATUM_* environment variables (for example
// TATUM_SERVER_PORT or TATUM_WATCH_DEBOUNCE) and an optional .tatum.yml:
//
//	server:
//	  host: 127.0.0.1
//	  port: 0
//	  root: .
//	template:
//	  path: .tatum/default
//	watch:
//	  debounce: 150ms
//	  poll_interval: 1s
//	log:
//	  level: info
//	  format: text
//
// # Export
//
// tatum macros transcribes katex-macros.js into macros.tex, and tatum
// export runs pandoc with header.tex and macros.tex to produce PDF or any
// other format pandoc supports.
package docs
