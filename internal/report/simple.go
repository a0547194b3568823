package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/waypoint/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs plain-text results for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the attempt list to resolved results.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every attempt, not only those of exhausted results.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(result model.Result) (int, error) {
	var sb strings.Builder
	w.writeResult(&sb, result)
	return io.WriteString(w.output, sb.String())
}

// WriteBatch implements Writer.
func (w *SimpleWriter) WriteBatch(results []model.Result) (int, error) {
	var sb strings.Builder
	for _, r := range results {
		w.writeResult(&sb, r)
	}

	s := model.NewSummary(results)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Total: %d  Resolved: %d  Exhausted: %d  Cached: %d\n", s.Total, s.Resolved, s.Exhausted, s.Cached)
	for _, name := range s.Strategies() {
		fmt.Fprintf(&sb, "  %-16s %d\n", name, s.ByStrategy[name])
	}
	return io.WriteString(w.output, sb.String())
}

// WriteFallback implements Writer.
func (w *SimpleWriter) WriteFallback(page model.FallbackPage) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s\n\n", page.Title)
	fmt.Fprintf(&sb, "%s\n", page.Guidance)
	fmt.Fprintf(&sb, "Cause: %s\n\n", page.Cause)
	sb.WriteString("What you can try:\n")
	for i, a := range page.Actions {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, a.Label)
		if len(a.URLs) == 0 {
			sb.WriteString("       (none configured)\n")
		}
		for _, u := range a.URLs {
			fmt.Fprintf(&sb, "       %s\n", u)
		}
	}
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, r model.Result) {
	fmt.Fprintf(sb, "Address:   %s (%s)\n", r.Address.Normalized, r.Address.Kind)

	if r.Resolved() {
		cached := ""
		if r.Cached {
			cached = " [cached]"
		}
		fmt.Fprintf(sb, "Status:    resolved via %s%s\n", r.Strategy, cached)
		fmt.Fprintf(sb, "Target:    %s\n", r.Target)
		if r.Host != "" {
			fmt.Fprintf(sb, "Host:      %s\n", r.Host)
		}
		if r.Via != "" {
			fmt.Fprintf(sb, "Via:       %s\n", r.Via)
		}
		if r.Locator != "" {
			fmt.Fprintf(sb, "Locator:   %s\n", r.Locator)
		}
		if r.Presumptive {
			sb.WriteString("Note:      success presumed without contacting the target\n")
		}
		if w.verbose {
			writeAttempts(sb, r.Attempts)
		}
	} else {
		fmt.Fprintf(sb, "Status:    exhausted after %d attempt(s)\n", len(r.Attempts))
		writeAttempts(sb, r.Attempts)
	}

	sb.WriteString("\n")
}

func writeAttempts(sb *strings.Builder, attempts []model.Attempt) {
	for _, a := range attempts {
		fmt.Fprintf(sb, "  [%-7s] %-16s %8s  %s\n",
			attemptOutcome(a),
			a.Strategy,
			a.Duration.Round(time.Millisecond),
			truncateString(a.Reason, 80),
		)
	}
}
