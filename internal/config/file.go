package config

import (
	"strings"
	"time"
)

// ProbeSection configures how candidates are probed.
type ProbeSection struct {
	// Timeout per probe, e.g. "10s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Concurrency is the maximum number of probes in flight.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Endpoint overrides the validation endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Proxy is a SOCKS5 proxy address in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxBodySize limits the response body size in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`
}

// ReportSection configures the final report.
type ReportSection struct {
	// Format is one of "text", "json" or "markdown".
	Format string `yaml:"format,omitempty"`

	// Reveal prints full keys instead of masked ones.
	Reveal bool `yaml:"reveal,omitempty"`
}

// HistorySection configures the scan history database.
type HistorySection struct {
	// Enabled saves every scan to the database.
	Enabled bool `yaml:"enabled,omitempty"`

	// Dir overrides the database directory.
	Dir string `yaml:"dir,omitempty"`
}

// File represents the structure of the .keyprobe configuration file.
type File struct {
	Probe   ProbeSection   `yaml:"probe,omitempty"`
	Report  ReportSection  `yaml:"report,omitempty"`
	History HistorySection `yaml:"history,omitempty"`
}

// ApplyFile copies every value set in f onto c. Zero values in f leave the
// corresponding setting untouched. Flags are applied afterwards by the
// caller so they take precedence.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}

	p := f.Probe
	if p.Timeout != 0 {
		c.Timeout = p.Timeout
	}
	if p.Concurrency != 0 {
		c.Concurrency = p.Concurrency
	}
	if p.Endpoint != "" {
		c.Endpoint = p.Endpoint
	}
	if p.Proxy != "" {
		c.ProxyAddress = p.Proxy
	}
	if p.UserAgent != "" {
		c.UserAgent = p.UserAgent
	}
	if p.MaxBodySize != 0 {
		c.MaxBodySize = p.MaxBodySize
	}

	switch strings.ToLower(strings.TrimSpace(f.Report.Format)) {
	case "":
	case FormatText:
		c.JSONReport, c.MarkdownReport = false, false
	case FormatJSON:
		c.JSONReport, c.MarkdownReport = true, false
	case FormatMarkdown, "md":
		c.JSONReport, c.MarkdownReport = false, true
	default:
		return ErrInvalidReportFormat
	}
	if f.Report.Reveal {
		c.Reveal = true
	}

	if f.History.Enabled {
		c.SaveToDB = true
	}
	if f.History.Dir != "" {
		c.DBDir = f.History.Dir
	}

	return nil
}
