package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/keyprobe/internal/dispatch"
	"github.com/nao1215/keyprobe/internal/extract"
	"github.com/nao1215/keyprobe/internal/model"
	"github.com/nao1215/keyprobe/internal/probe"
	"github.com/nao1215/keyprobe/internal/session"
)

// Scanner starts scans that share one Prober.
type Scanner struct {
	prober probe.Prober
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner that validates candidates with p.
func New(p probe.Prober, opts ...Option) *Scanner {
	s := &Scanner{prober: p}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// StartScan extracts candidates from rawText and probes them in the
// background with at most concurrency probes in flight, each bounded by
// timeout.
//
// It returns ErrNoCandidates when rawText holds no candidates, and the
// dispatcher's configuration errors when concurrency or timeout is invalid.
// In both cases nothing is started and l is never called.
//
// Cancelling ctx, or calling Cancel on the returned Scan, stops new probes
// from starting.
func (s *Scanner) StartScan(ctx context.Context, rawText string, concurrency int, timeout time.Duration, l Listener) (*Scan, error) {
	candidates := extract.Extract(rawText)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	d := dispatch.New(s.prober,
		dispatch.WithConcurrency(concurrency),
		dispatch.WithTimeout(timeout),
		dispatch.WithLogger(s.logger),
	)
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if l == nil {
		l = ListenerFuncs{}
	}

	sess := session.New(candidates)
	scanCtx, cancel := context.WithCancel(ctx)

	scan := &Scan{
		session: sess,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.logger.Info("scan started",
		"scanID", sess.ID(),
		"candidates", len(candidates),
		"concurrency", concurrency,
		"timeout", timeout,
	)

	h := &handler{
		session:  sess,
		listener: l,
		total:    int64(len(candidates)),
		logger:   s.logger,
	}

	go func() {
		defer close(scan.done)
		defer cancel()

		scan.err = d.Run(scanCtx, candidates, h)

		summary := sess.Snapshot()
		s.logger.Info("scan finished",
			"scanID", summary.ScanID,
			"processed", summary.Processed,
			"total", summary.Total,
			"active", summary.Active,
			"completed", summary.Completed(),
		)
	}()

	return scan, nil
}

// handler forwards dispatcher events to the session and the listener.
type handler struct {
	session  *session.Session
	listener Listener
	total    int64
	finished atomic.Int64
	logger   *slog.Logger
}

func (h *handler) OnResult(c model.Candidate, o model.Outcome) {
	if err := h.session.OnResult(c, o); err != nil {
		h.logger.Error("failed to record outcome", "candidate", c.Masked(), "error", err)
	}
	h.listener.OnCandidateResult(c, o)
}

func (h *handler) OnFinished(c model.Candidate) {
	h.listener.OnCandidateFinished(c)

	// The worker that finishes last reports completion, so every other
	// OnCandidateFinished has already returned. A delivery the session
	// rejected still counts as finished, so the session state decides.
	if h.finished.Add(1) == h.total && h.session.State() == model.ScanCompleted {
		h.listener.OnScanCompleted(h.session.Snapshot())
	}
}

// Scan is a handle to a running or finished scan.
type Scan struct {
	session *session.Session
	cancel  context.CancelFunc
	done    chan struct{}

	// err is written by the run goroutine before done is closed.
	err error
}

// ID returns the scan ID.
func (s *Scan) ID() string {
	return s.session.ID()
}

// Snapshot returns the current counters.
func (s *Scan) Snapshot() model.Summary {
	return s.session.Snapshot()
}

// Cancel stops new probes from starting. In-flight probes run to their
// normal end, bounded by the per-probe timeout, and their outcomes are
// recorded.
func (s *Scan) Cancel() {
	s.cancel()
}

// Done returns a channel closed once every started probe has finished.
func (s *Scan) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the scan has stopped and returns its report.
//
// If ctx ends first, Wait returns ctx.Err() and the scan keeps running.
// If the scan was cancelled before completing, the partial report is
// returned together with an error wrapping ErrScanCancelled.
func (s *Scan) Wait(ctx context.Context) (model.Report, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return model.Report{}, ctx.Err()
	}

	report := s.session.Report()
	if s.session.State() != model.ScanCompleted {
		if s.err != nil {
			return report, fmt.Errorf("%w: %w", ErrScanCancelled, s.err)
		}
		return report, ErrScanCancelled
	}
	return report, nil
}
