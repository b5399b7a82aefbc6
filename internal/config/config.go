package config

import (
	"net/url"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "keyprobe"

	// DefaultEndpoint is the Generative Language API "list models" endpoint.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

	// DefaultTimeout bounds each probe request. The endpoint normally answers
	// well under a second.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies keyprobe in HTTP requests.
	DefaultUserAgent = "keyprobe (+https://github.com/nao1215/keyprobe)"

	// DefaultMaxBodySize limits the response body size read per probe.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxInputSize limits the combined size of all scanned inputs.
	DefaultMaxInputSize = 64 * 1024 * 1024 // 64MB
)

// Report formats accepted in the configuration file.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Config holds all options for a keyprobe run.
// It is populated from defaults, the configuration file and CLI flags, and
// passed down explicitly rather than kept in global state.
type Config struct {
	// Timeout bounds each probe. It becomes the deadline of the probe's
	// context, and the HTTP client carries it as well.
	Timeout time.Duration

	// Concurrency is the maximum number of probes in flight.
	// Defaults to the number of CPUs.
	Concurrency int

	// Endpoint is the validation endpoint. The candidate is sent as the "key"
	// query parameter.
	Endpoint string

	// ProxyAddress routes probes through a SOCKS5 proxy in "host:port"
	// format. Empty means a direct connection.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with every probe.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// MaxInputSize is the maximum combined size in bytes of the scanned input.
	// Set to 0 to use the default (64MB).
	MaxInputSize int64

	// Verbose enables debug log output.
	Verbose bool

	// Quiet suppresses per-candidate progress lines.
	Quiet bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .keyprobe is searched in the current directory, the home
	// directory and the XDG config directory.
	ConfigFilePath string

	// Inputs are the files to scan. "-" or no inputs at all mean stdin.
	Inputs []string

	// JSONReport selects the JSON report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file for the report; stdout when empty.
	ReportFile string

	// Reveal prints full keys in reports instead of their masked form.
	Reveal bool

	// SaveToDB stores the scan in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/keyprobe on Linux).
	DBDir string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		Concurrency:  runtime.NumCPU(),
		Endpoint:     DefaultEndpoint,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		MaxInputSize: DefaultMaxInputSize,
		DBDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for keyprobe.
// On Linux: ~/.local/share/keyprobe
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for keyprobe.
// On Linux: ~/.config/keyprobe
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ReportFormat returns the selected report format.
func (c *Config) ReportFormat() string {
	switch {
	case c.JSONReport:
		return FormatJSON
	case c.MarkdownReport:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flags are parsed, before any probe is sent.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MaxInputSize < 0 {
		return ErrInvalidMaxInputSize
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidEndpoint
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}
