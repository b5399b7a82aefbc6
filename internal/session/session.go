package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/keyprobe/internal/model"
)

// Session is the aggregate root of a scan. It is safe for concurrent use.
type Session struct {
	id        string
	startedAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	submitted  map[model.Candidate]struct{}
	outcomes   map[model.Candidate]model.Outcome
	total      int
	processed  int
	active     int
	state      model.ScanState
	finishedAt time.Time

	done         chan struct{}
	onComplete   func(model.Summary)
	completeOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithOnComplete registers a hook called exactly once, with the final
// summary, when the session completes. It runs on the goroutine that
// delivered the last outcome, outside the session lock.
func WithOnComplete(fn func(model.Summary)) Option {
	return func(s *Session) {
		s.onComplete = fn
	}
}

// WithID sets the scan ID instead of generating a random UUID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session for candidates. Repeated candidates count once.
// A session over zero candidates starts out Completed.
func New(candidates model.CandidateSet, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		now:       time.Now,
		submitted: make(map[model.Candidate]struct{}, len(candidates)),
		outcomes:  make(map[model.Candidate]model.Outcome, len(candidates)),
		state:     model.ScanCollecting,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, c := range candidates {
		s.submitted[c] = struct{}{}
	}
	s.total = len(s.submitted)
	s.startedAt = s.now()

	if s.total == 0 {
		s.state = model.ScanCompleted
		s.finishedAt = s.startedAt
		s.complete(s.summaryLocked())
	}

	return s
}

// ID returns the scan ID.
func (s *Session) ID() string {
	return s.id
}

// Total returns the number of submitted candidates.
func (s *Session) Total() int {
	return s.total
}

// OnResult records the outcome for candidate.
func (s *Session) OnResult(candidate model.Candidate, outcome model.Outcome) error {
	s.mu.Lock()

	if s.state == model.ScanCompleted {
		s.mu.Unlock()
		return ErrSessionCompleted
	}
	if _, ok := s.submitted[candidate]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidate.Masked())
	}
	if _, dup := s.outcomes[candidate]; dup {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateResult, candidate.Masked())
	}

	s.outcomes[candidate] = outcome
	s.processed++
	if outcome.Active() {
		s.active++
	}

	completed := s.processed == s.total
	var summary model.Summary
	if completed {
		s.state = model.ScanCompleted
		s.finishedAt = s.now()
		summary = s.summaryLocked()
	}
	s.mu.Unlock()

	if completed {
		s.complete(summary)
	}
	return nil
}

// complete runs the completion hook and closes Done, once.
func (s *Session) complete(summary model.Summary) {
	s.completeOnce.Do(func() {
		if s.onComplete != nil {
			s.onComplete(summary)
		}
		close(s.done)
	})
}

// Done returns a channel closed once the session has completed and the
// completion hook has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() model.ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current counters. Safe to call at any time.
func (s *Session) Snapshot() model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() model.Summary {
	return model.Summary{
		ScanID:    s.id,
		Total:     s.total,
		Processed: s.processed,
		Active:    s.active,
		State:     s.state,
	}
}

// Outcome returns the recorded outcome for candidate, if any.
func (s *Session) Outcome(candidate model.Candidate) (model.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[candidate]
	return o, ok
}

// Report builds the report of the session. A report taken before completion
// is marked Cancelled and contains only the recorded outcomes.
func (s *Session) Report() model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]model.Result, 0, len(s.outcomes))
	for c, o := range s.outcomes {
		results = append(results, model.Result{Candidate: c, Outcome: o})
	}
	model.SortResults(results)

	finishedAt := s.finishedAt
	if finishedAt.IsZero() {
		finishedAt = s.now()
	}

	return model.Report{
		ScanID:     s.id,
		StartedAt:  s.startedAt,
		FinishedAt: finishedAt,
		Total:      s.total,
		Processed:  s.processed,
		Active:     s.active,
		Cancelled:  s.state != model.ScanCompleted,
		Results:    results,
	}
}
