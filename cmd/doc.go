// Package cmd provides the command-line interface for tatum.
//
// This package implements all CLI commands using the Cobra framework.
//
// # Available Commands
//
//   - serve: Start the live preview server
//   - render: Render a document to a standalone HTML file
//   - init: Scaffold the builtin templates into .tatum
//   - new: Create a template from the default one
//   - list: List the templates under .tatum
//   - macros: Transcribe katex-macros.js into macros.tex
//   - export: Convert a document with pandoc
//   - version: Show version information
//
// # Command Examples
//
//	// Scaffold templates, then preview a document
//	tatum init
//	tatum serve --open notes.md
//
//	// Render once with another template
//	tatum render notes.md -t .tatum/bluetot -o notes.html
//
//	// Export to PDF through pandoc
//	tatum macros
//	tatum export notes.md
//
// # Configuration
//
// Commands read .tatum.yml from the working directory (or the file named
// by --config or TATUM_CONFIG_FILE). Every value can be overridden with a
// TATUM_<SECTION>_<KEY> environment variable, for example
// TATUM_SERVER_PORT=4000 or TATUM_WATCH_DEBOUNCE=300ms.
package cmd
