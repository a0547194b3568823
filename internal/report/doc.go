// Package report renders resolution results and fallback pages.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown for sharing, with a strategy chart for batches
//
// Writers implement the Writer interface, so they can be used
// interchangeably and combined with MultiWriter.
package report
