package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/keyprobe/internal/model"
)

const (
	// DefaultEndpoint is the Generative Language API "list models" endpoint.
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

	// DefaultTimeout bounds a single probe request.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	// A models listing is a few tens of kilobytes.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent identifies keyprobe in HTTP requests.
	DefaultUserAgent = "keyprobe (+https://github.com/nao1215/keyprobe)"
)

// Prober validates one candidate. Implementations must be safe for
// concurrent use and must always return an outcome.
type Prober interface {
	Probe(ctx context.Context, candidate model.Candidate) model.Outcome
}

// Func adapts an ordinary function to the Prober interface.
type Func func(ctx context.Context, candidate model.Candidate) model.Outcome

// Probe calls f(ctx, candidate).
func (f Func) Probe(ctx context.Context, candidate model.Candidate) model.Outcome {
	return f(ctx, candidate)
}

// HTTPProber validates candidates with one HTTP GET each.
type HTTPProber struct {
	endpoint     *url.URL
	client       *http.Client
	userAgent    string
	maxBodySize  int64
	timeout      time.Duration
	proxyAddress string
	logger       *slog.Logger

	rawEndpoint  string
	customClient bool
}

// Option configures an HTTPProber.
type Option func(*HTTPProber)

// WithEndpoint overrides the validation endpoint. The candidate is sent as
// the "key" query parameter; existing query parameters are kept.
func WithEndpoint(endpoint string) Option {
	return func(p *HTTPProber) {
		p.rawEndpoint = endpoint
	}
}

// WithTimeout sets the HTTP client timeout. Callers usually also bound each
// Probe call with a context deadline; the shorter of the two wins.
func WithTimeout(timeout time.Duration) Option {
	return func(p *HTTPProber) {
		p.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(p *HTTPProber) {
		if userAgent != "" {
			p.userAgent = userAgent
		}
	}
}

// WithMaxBodySize limits the number of response bytes read.
// Non-positive values keep the default.
func WithMaxBodySize(n int64) Option {
	return func(p *HTTPProber) {
		if n > 0 {
			p.maxBodySize = n
		}
	}
}

// WithProxy routes requests through a SOCKS5 proxy at "host:port".
// An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(p *HTTPProber) {
		p.proxyAddress = address
	}
}

// WithHTTPClient replaces the HTTP client entirely. The timeout and proxy
// options are ignored when a client is supplied.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProber) {
		if client != nil {
			p.client = client
			p.customClient = true
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *HTTPProber) {
		p.logger = logger
	}
}

// NewHTTPProber creates an HTTPProber. It validates the configuration but
// does not contact the endpoint.
func NewHTTPProber(opts ...Option) (*HTTPProber, error) {
	p := &HTTPProber{
		rawEndpoint: DefaultEndpoint,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	endpoint, err := parseEndpoint(p.rawEndpoint)
	if err != nil {
		return nil, err
	}
	p.endpoint = endpoint

	if !p.customClient {
		if p.timeout <= 0 {
			return nil, ErrInvalidTimeout
		}
		transport, err := newTransport(p.proxyAddress)
		if err != nil {
			return nil, err
		}
		p.client = &http.Client{
			Timeout:   p.timeout,
			Transport: transport,
		}
	}

	return p, nil
}

// parseEndpoint checks that endpoint is an absolute http(s) URL.
func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidEndpoint
	}
	return u, nil
}

// Endpoint returns the configured endpoint without any key.
func (p *HTTPProber) Endpoint() string {
	return p.endpoint.String()
}

// Probe sends one GET request for candidate and classifies the answer.
// It never retries and always returns an outcome.
func (p *HTTPProber) Probe(ctx context.Context, candidate model.Candidate) model.Outcome {
	outcome := p.probe(ctx, candidate)

	p.logger.Debug("probe finished",
		"candidate", candidate.Masked(),
		"status", outcome.Kind.String(),
		"statusCode", outcome.StatusCode,
	)

	return outcome
}

func (p *HTTPProber) probe(ctx context.Context, candidate model.Candidate) model.Outcome {
	if err := ctx.Err(); err != nil {
		return model.TransportError(describeTransportError(err, candidate))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.requestURL(candidate), nil)
	if err != nil {
		return model.TransportError(describeTransportError(err, candidate))
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.TransportError(describeTransportError(err, candidate))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, p.maxBodySize)) //nolint:errcheck // best effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize+1))
	if err != nil {
		return model.TransportError(describeTransportError(err, candidate))
	}

	if int64(len(body)) > p.maxBodySize {
		if resp.StatusCode == http.StatusOK {
			return model.RemoteError(resp.StatusCode,
				fmt.Sprintf("malformed response: body exceeds %d bytes", p.maxBodySize))
		}
		return model.RemoteError(resp.StatusCode, statusMessage(resp.StatusCode))
	}

	return Classify(resp.StatusCode, body)
}

// requestURL builds the endpoint URL with the candidate as "key" parameter.
func (p *HTTPProber) requestURL(candidate model.Candidate) string {
	u := *p.endpoint
	q := u.Query()
	q.Set("key", string(candidate))
	u.RawQuery = q.Encode()
	return u.String()
}

// listModelsResponse is the body of a successful models listing.
type listModelsResponse struct {
	Models []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"models"`
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Classify turns an HTTP status and body into an outcome.
//
//   - 200 with a parseable body is a Success (a missing models list means zero models)
//   - 200 with an unparseable body is a malformed response, reported as RemoteError
//   - any other status is a RemoteError carrying error.message or "HTTP <code>"
func Classify(statusCode int, body []byte) model.Outcome {
	if statusCode == http.StatusOK {
		var r listModelsResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return model.RemoteError(statusCode, "malformed response: "+err.Error())
		}
		models := make([]model.ModelInfo, 0, len(r.Models))
		for _, m := range r.Models {
			models = append(models, model.NewModelInfo(m.Name, m.Description))
		}
		return model.Success(models)
	}

	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if msg := strings.TrimSpace(e.Error.Message); msg != "" {
			return model.RemoteError(statusCode, msg)
		}
	}
	return model.RemoteError(statusCode, statusMessage(statusCode))
}

// statusMessage is the fallback message for a remote error without a usable body.
func statusMessage(statusCode int) string {
	return "HTTP " + strconv.Itoa(statusCode)
}

// describeTransportError renders err without the request URL (which carries
// the key) and marks timeouts so callers can recognise them.
func describeTransportError(err error, candidate model.Candidate) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	msg := err.Error()
	if candidate != "" {
		msg = strings.ReplaceAll(msg, string(candidate), candidate.Masked())
	}
	if isTimeout(err) {
		return "timeout: " + msg
	}
	return msg
}

// isTimeout reports whether err was caused by a deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
