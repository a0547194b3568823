package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/waypoint/internal/model"
)

// MarkdownWriter outputs results in Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(result model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Waypoint Resolution Report")
	md.PlainText("")
	w.writeResult(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch implements Writer.
func (w *MarkdownWriter) WriteBatch(results []model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)
	s := model.NewSummary(results)

	md.H1("Waypoint Batch Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Addresses", strconv.Itoa(s.Total)},
			{"Resolved", strconv.Itoa(s.Resolved)},
			{"Exhausted", strconv.Itoa(s.Exhausted)},
			{"From cache", strconv.Itoa(s.Cached)},
			{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	if s.Resolved > 0 {
		w.writePieChart(md, s)
	}
	if s.Exhausted > 0 {
		md.Warningf("%d of %d address(es) could not be resolved.", s.Exhausted, s.Total)
		md.PlainText("")
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		strategy, target := "-", "-"
		if r.Resolved() {
			strategy, target = r.Strategy, truncateString(r.Target, 60)
		}
		rows[i] = []string{"`" + r.Address.Normalized + "`", r.Status.String(), strategy, target}
	}
	md.H2("Results")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Address", "Status", "Strategy", "Target"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range results {
		if !r.Resolved() && len(r.Attempts) > 0 {
			md.Details(r.Address.Normalized, r.Err().Error())
		}
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteFallback implements Writer.
func (w *MarkdownWriter) WriteFallback(page model.FallbackPage) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(page.Title)
	md.PlainText("")
	md.PlainText(page.Guidance)
	md.PlainText("")
	md.Cautionf("%s", page.Cause)
	md.PlainText("")

	md.H2("What you can try")
	md.PlainText("")
	for _, a := range page.Actions {
		md.H3(a.Label)
		md.PlainText("")
		if len(a.URLs) == 0 {
			md.PlainText("No relays are configured.")
			md.PlainText("")
			continue
		}
		links := make([]string, len(a.URLs))
		for i, u := range a.URLs {
			links[i] = markdown.Link(truncateString(u, 80), u)
		}
		md.BulletList(links...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeResult(md *markdown.Markdown, r model.Result) {
	rows := [][]string{
		{"Address", "`" + r.Address.Normalized + "`"},
		{"Kind", r.Address.Kind.String()},
		{"Status", r.Status.String()},
	}
	if r.Resolved() {
		rows = append(rows,
			[]string{"Strategy", r.Strategy},
			[]string{"Target", "`" + r.Target + "`"},
			[]string{"Content", r.Kind.String()},
		)
		if r.Via != "" {
			rows = append(rows, []string{"Via", r.Via})
		}
		if r.Host != "" {
			rows = append(rows, []string{"Host header", r.Host})
		}
	}
	rows = append(rows, []string{"Resolved at", r.ResolvedAt.Format("2006-01-02 15:04:05 MST")})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case !r.Resolved():
		md.Cautionf("All %d applicable strategies failed.", len(r.Attempts))
	case r.Presumptive:
		md.Note("Success was presumed without contacting the target; the target may still fail to load.")
	case r.Cached:
		md.Tip("Served from the resolution cache.")
	default:
		md.Tip("Resolved.")
	}
	md.PlainText("")

	if len(r.Attempts) == 0 {
		return
	}
	rowsA := make([][]string, len(r.Attempts))
	for i, a := range r.Attempts {
		rowsA[i] = []string{
			a.Strategy,
			attemptOutcome(a),
			a.Duration.Round(time.Millisecond).String(),
			truncateString(a.Reason, 60),
		}
	}
	md.H2("Attempts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Strategy", "Outcome", "Duration", "Detail"},
		Rows:   rowsA,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of winning strategies.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Winning Strategies"),
		piechart.WithShowData(true),
	)
	for _, name := range s.Strategies() {
		chart.LabelAndIntValue(name, uint64(s.ByStrategy[name])) //nolint:gosec // counts are non-negative
	}
	if s.Exhausted > 0 {
		chart.LabelAndIntValue("exhausted", uint64(s.Exhausted)) //nolint:gosec // counts are non-negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [waypoint](https://github.com/nao1215/waypoint)*")
}
