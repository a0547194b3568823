package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/waypoint/internal/model"
)

// JSONWriter outputs results in JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables indented output with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BatchReport is the JSON shape of a batch.
type BatchReport struct {
	Summary *model.Summary `json:"summary"`
	Results []model.Result `json:"results"`
}

// Write implements Writer.
func (w *JSONWriter) Write(result model.Result) (int, error) {
	return w.writeJSON(result)
}

// WriteBatch implements Writer.
func (w *JSONWriter) WriteBatch(results []model.Result) (int, error) {
	return w.writeJSON(BatchReport{
		Summary: model.NewSummary(results),
		Results: results,
	})
}

// WriteFallback implements Writer.
func (w *JSONWriter) WriteFallback(page model.FallbackPage) (int, error) {
	return w.writeJSON(page)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
