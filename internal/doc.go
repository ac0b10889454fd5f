// Package internal contains the implementation packages of the tatum CLI.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - compiler: Markdown to HTML fragment with math protection and highlighting
//   - diagram: Diagram block parsing and SVG layout
//   - templates: Template directory resolution, caching and page assembly
//   - renderer: The document render pipeline joining compiler and templates
//   - watcher: Per-document change detection with debouncing
//   - server: Preview HTTP server and reload websocket sessions
//   - scaffolding: Builtin template extraction into .tatum
//   - macros: KaTeX macro script to LaTeX transcription
//   - export: External conversion through pandoc
//   - config, logging, errors, version: Ambient support
//
// # Data Flow
//
// A request for a document resolves the template through the cache,
// compiles the document and assembles the page. Each websocket session
// owns one watcher; a change to its document sends a reload message and
// the browser requests the page again.
//
// # Security Considerations
//
//   - Server validates websocket origins against the bound host
//   - Documents are resolved under the configured root only
//   - Export runs pandoc with an argument list, never through a shell
package internal
