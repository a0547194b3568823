package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/waypoint/internal/model"
)

// Format names an output format.
type Format string

const (
	// FormatSimple is plain text.
	FormatSimple Format = "simple"

	// FormatJSON is JSON.
	FormatJSON Format = "json"

	// FormatMarkdown is Markdown.
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format name. The empty string is FormatSimple.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatSimple, "text":
		return FormatSimple, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want simple, json or markdown)", s)
	}
}

// Writer renders results.
type Writer interface {
	// Write renders one result.
	Write(result model.Result) (int, error)

	// WriteBatch renders several results with a summary.
	WriteBatch(results []model.Result) (int, error)

	// WriteFallback renders a fallback page.
	WriteFallback(page model.FallbackPage) (int, error)
}

// New returns the writer for format.
func New(format Format, output io.Writer) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// MultiWriter writes to several Writers in turn, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(result model.Result) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(result) })
}

// WriteBatch implements Writer.
func (m *MultiWriter) WriteBatch(results []model.Result) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteBatch(results) })
}

// WriteFallback implements Writer.
func (m *MultiWriter) WriteFallback(page model.FallbackPage) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteFallback(page) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// attemptOutcome is the short outcome label of an attempt.
func attemptOutcome(a model.Attempt) string {
	switch {
	case a.Success:
		return "ok"
	case a.TimedOut:
		return "timeout"
	default:
		return "failed"
	}
}

// truncateString truncates a string to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
