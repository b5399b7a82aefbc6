package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/keyprobe/internal/model"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer writes a finished scan report in some format.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.Report) (int, error)
}

// MultiWriter writes a report to several Writers in turn.
// Our Writer writes reports rather than bytes, so io.MultiWriter does not fit.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer and returns the total bytes
// written. It stops on the first error.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// options holds the settings shared by all writers.
type options struct {
	reveal       bool
	version      string
	indent       bool
	indentPrefix string
	indentString string
}

// Option configures a writer. Options a format does not use are ignored.
type Option func(*options)

// WithReveal prints full keys instead of their masked form.
func WithReveal(reveal bool) Option {
	return func(o *options) {
		o.reveal = reveal
	}
}

// WithVersion records the keyprobe version in the report.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

// WithIndent enables indented JSON output.
func WithIndent(prefix, indent string) Option {
	return func(o *options) {
		o.indent = true
		o.indentPrefix = prefix
		o.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() Option {
	return WithIndent("", "  ")
}

// baseWriter provides the output and options common to all writers.
type baseWriter struct {
	output io.Writer
	opts   options
}

func newBaseWriter(output io.Writer, opts []Option) baseWriter {
	b := baseWriter{output: output}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// keyFor renders a result's key according to the reveal option.
func (b *baseWriter) keyFor(res model.Result) string {
	if b.opts.reveal {
		return res.Candidate.String()
	}
	return res.Candidate.Masked()
}

// New returns the writer for format: "text", "json" or "markdown".
func New(format string, output io.Writer, opts ...Option) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewSimpleWriter(output, opts...), nil
	case "json":
		return NewJSONWriter(output, opts...), nil
	case "markdown", "md":
		return NewMarkdownWriter(output, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// statusText describes whether the scan ran to completion.
func statusText(report *model.Report) string {
	if report.Cancelled {
		return fmt.Sprintf("CANCELLED (%d of %d probed)", report.Processed, report.Total)
	}
	return "Complete"
}
