package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/keyprobe/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...Option) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("keyprobe Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Scan ID", "`" + report.ScanID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(1e6).String()},
			{"Status", w.statusBadge(report)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusBadge(report *model.Report) string {
	if report.Cancelled {
		return "⚠️ " + statusText(report)
	}
	return "✅ " + statusText(report)
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"🔑 Active", strconv.Itoa(report.Active)},
			{"⛔ Remote error", strconv.Itoa(report.RemoteErrors())},
			{"🔌 Transport error", strconv.Itoa(report.TransportErrors())},
			{"**Processed**", "**" + strconv.Itoa(report.Processed) + " / " + strconv.Itoa(report.Total) + "**"},
		},
	})
	md.PlainText("")

	if report.Processed > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the outcome kinds.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)

	if report.Active > 0 {
		chart.LabelAndIntValue("Active", uint64(report.Active)) //nolint:gosec // counts are non-negative
	}
	if n := report.RemoteErrors(); n > 0 {
		chart.LabelAndIntValue("Remote error", uint64(n)) //nolint:gosec // counts are non-negative
	}
	if n := report.TransportErrors(); n > 0 {
		chart.LabelAndIntValue("Transport error", uint64(n)) //nolint:gosec // counts are non-negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	switch {
	case report.Active > 0:
		md.Cautionf("%d active key(s) found. Revoke or restrict them in the Google Cloud console.", report.Active)
	case report.Cancelled:
		md.Warningf("The scan was cancelled after %d of %d candidates.", report.Processed, report.Total)
	case report.TransportErrors() > 0:
		md.Note("Some candidates could not be reached. Their status is unknown.")
	default:
		md.Tip("No active keys found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.Report) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No candidates were probed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		rows = append(rows, []string{
			"`" + w.keyFor(res) + "`",
			res.Outcome.Kind.Label(),
			escapeCell(truncateString(detail(res.Outcome), 80)),
			"`" + res.Candidate.Fingerprint()[:12] + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Key", "Status", "Detail", "Fingerprint"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, res := range report.ActiveResults() {
		if len(res.Outcome.Models) == 0 {
			continue
		}
		lines := make([]string, 0, len(res.Outcome.Models))
		for _, m := range res.Outcome.Models {
			lines = append(lines, "- "+m.Name+": "+m.Description)
		}
		md.Details(w.keyFor(res)+" models", strings.Join(lines, "\n"))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [keyprobe](https://github.com/nao1215/keyprobe)*")
}

// escapeCell keeps a value from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
