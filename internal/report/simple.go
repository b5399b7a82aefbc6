package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/keyprobe/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...Option) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output, opts)}
}

// Write outputs the report as text.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeResults(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          KEYPROBE REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Scan ID:   %s\n", report.ScanID)
	fmt.Fprintf(sb, "Started:   %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", report.Duration().Round(1e6))
	fmt.Fprintf(sb, "Status:    %s\n", statusText(report))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  CANDIDATES:        %d\n", report.Total)
	fmt.Fprintf(sb, "  PROCESSED:         %d\n", report.Processed)
	fmt.Fprintf(sb, "  ACTIVE:            %d\n", report.Active)
	fmt.Fprintf(sb, "  REMOTE ERRORS:     %d\n", report.RemoteErrors())
	fmt.Fprintf(sb, "  TRANSPORT ERRORS:  %d\n", report.TransportErrors())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "RESULTS")

	if len(report.Results) == 0 {
		sb.WriteString("  No results\n\n")
		return
	}

	for _, res := range report.Results {
		fmt.Fprintf(sb, "  %-8s %s  %s\n", "["+res.Outcome.Kind.Label()+"]", w.keyFor(res), detail(res.Outcome))
		for _, m := range res.Outcome.Models {
			fmt.Fprintf(sb, "             - %s: %s\n", m.Name, m.Description)
		}
	}
	sb.WriteString("\n")
}

// detail is the one-line description of an outcome, with the HTTP status
// appended to remote errors.
func detail(o model.Outcome) string {
	if o.Kind == model.OutcomeRemoteError && o.StatusCode != 0 && !strings.HasPrefix(o.Message, "HTTP ") {
		return fmt.Sprintf("%s (HTTP %d)", o.Detail(), o.StatusCode)
	}
	return o.Detail()
}
