package dispatch

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/nao1215/keyprobe/internal/model"
	"github.com/nao1215/keyprobe/internal/probe"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout is the per-probe timeout used when none is configured.
const DefaultTimeout = 10 * time.Second

// Handler receives per-candidate events. Both methods are called from worker
// goroutines, so implementations must be safe for concurrent use.
type Handler interface {
	// OnResult delivers the outcome of a candidate's probe.
	OnResult(candidate model.Candidate, outcome model.Outcome)

	// OnFinished signals that the candidate's worker is done. It is always
	// called after OnResult for the same candidate.
	OnFinished(candidate model.Candidate)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Result   func(candidate model.Candidate, outcome model.Outcome)
	Finished func(candidate model.Candidate)
}

// OnResult calls h.Result if set.
func (h HandlerFuncs) OnResult(candidate model.Candidate, outcome model.Outcome) {
	if h.Result != nil {
		h.Result(candidate, outcome)
	}
}

// OnFinished calls h.Finished if set.
func (h HandlerFuncs) OnFinished(candidate model.Candidate) {
	if h.Finished != nil {
		h.Finished(candidate)
	}
}

// Dispatcher fans candidates out to a Prober with bounded concurrency.
type Dispatcher struct {
	// prober validates a single candidate. Shared by all workers.
	prober probe.Prober

	// concurrency is the maximum number of probes in flight.
	concurrency int

	// timeout bounds each probe through its context deadline.
	timeout time.Duration

	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency sets the maximum number of concurrent probes.
// Values below 1 make Run fail with ErrInvalidConcurrency.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.concurrency = n
	}
}

// WithTimeout sets the per-probe timeout.
// Non-positive values make Run fail with ErrInvalidTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithLogger sets a custom logger for dispatch-level logging.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher. The default concurrency is runtime.NumCPU()
// and the default timeout is DefaultTimeout.
func New(p probe.Prober, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		prober:      p,
		concurrency: runtime.NumCPU(),
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// Concurrency returns the configured concurrency limit.
func (d *Dispatcher) Concurrency() int {
	return d.concurrency
}

// Timeout returns the configured per-probe timeout.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// Validate checks the configuration. Run calls it before dispatching anything.
func (d *Dispatcher) Validate() error {
	if d.prober == nil {
		return ErrNoProber
	}
	if d.concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if d.timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Run probes every candidate exactly once and reports each outcome to h.
//
// Run blocks until every started probe has finished and both handler calls
// for it have returned. Per-candidate failures are outcomes, never errors:
// the only errors are configuration errors (returned before any probe
// starts) and ctx.Err() when the run was cancelled.
func (d *Dispatcher) Run(ctx context.Context, candidates model.CandidateSet, h Handler) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if h == nil {
		h = HandlerFuncs{}
	}

	d.logger.Debug("starting dispatch",
		"candidates", len(candidates),
		"concurrency", d.concurrency,
		"timeout", d.timeout,
	)
	startTime := time.Now()

	// Probe failures never abort the group, so a plain Group is enough.
	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, candidate := range candidates {
		// g.Go blocks while the pool is full; stop feeding once cancelled.
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			// Cancelling ctx stops new probes only; a started probe is
			// bounded by its timeout alone.
			probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
			outcome := d.prober.Probe(probeCtx, candidate)
			cancel()

			h.OnResult(candidate, outcome)
			h.OnFinished(candidate)

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	d.logger.Debug("dispatch complete",
		"candidates", len(candidates),
		"elapsed", time.Since(startTime),
		"cancelled", ctx.Err() != nil,
	)

	return ctx.Err()
}
