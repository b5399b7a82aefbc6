package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/keyprobe/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...Option) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output, opts)}
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the keyprobe version that produced the report.
	Version string `json:"version,omitempty"`

	ScanID          string    `json:"scan_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationMS      int64     `json:"duration_ms"`
	Total           int       `json:"total"`
	Processed       int       `json:"processed"`
	Active          int       `json:"active"`
	RemoteErrors    int       `json:"remote_errors"`
	TransportErrors int       `json:"transport_errors"`
	Cancelled       bool      `json:"cancelled"`

	// Results are sorted by key. Keys are masked unless revealed.
	Results []model.ResultView `json:"results"`
}

// NewJSONReport builds the JSON document for report.
func NewJSONReport(report *model.Report, version string, reveal bool) *JSONReport {
	return &JSONReport{
		Version:         version,
		ScanID:          report.ScanID,
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		DurationMS:      report.Duration().Milliseconds(),
		Total:           report.Total,
		Processed:       report.Processed,
		Active:          report.Active,
		RemoteErrors:    report.RemoteErrors(),
		TransportErrors: report.TransportErrors(),
		Cancelled:       report.Cancelled,
		Results:         report.Views(reveal),
	}
}

// Write outputs the report as a single JSON document.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.opts.version, w.opts.reveal))
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.opts.indent {
		data, err = json.MarshalIndent(v, w.opts.indentPrefix, w.opts.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
