package model

import (
	"sort"
	"time"
)

// ScanState is the lifecycle state of a scan session.
type ScanState int

const (
	// ScanCollecting means some candidates have not produced an outcome yet.
	ScanCollecting ScanState = iota

	// ScanCompleted means every candidate has produced an outcome.
	// The session is read-only from then on.
	ScanCompleted
)

// String returns a human-readable representation of the state.
func (s ScanState) String() string {
	switch s {
	case ScanCollecting:
		return "collecting"
	case ScanCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ScanState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Summary is a point-in-time view of a scan's counters.
type Summary struct {
	// ScanID identifies the session the summary was taken from.
	ScanID string `json:"scan_id"`

	// Total is the number of candidates submitted.
	Total int `json:"total"`

	// Processed is the number of candidates with a recorded outcome.
	Processed int `json:"processed"`

	// Active is the number of Success outcomes.
	Active int `json:"active"`

	// State is the session state when the summary was taken.
	State ScanState `json:"state"`
}

// Completed reports whether the summary was taken from a completed session.
func (s Summary) Completed() bool {
	return s.State == ScanCompleted
}

// Result pairs a candidate with its outcome.
type Result struct {
	Candidate Candidate `json:"-"`
	Outcome   Outcome   `json:"outcome"`
}

// ResultView is a Result prepared for output. The key is masked unless the
// view was built with reveal set; the fingerprint is always present so the
// same key can be recognised across scans without being stored.
type ResultView struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
	Outcome
}

// View renders r for output.
func (r Result) View(reveal bool) ResultView {
	key := r.Candidate.Masked()
	if reveal {
		key = r.Candidate.String()
	}
	return ResultView{
		Key:         key,
		Fingerprint: r.Candidate.Fingerprint(),
		Outcome:     r.Outcome,
	}
}

// Report is the final view of a scan. Reports are built by the session and
// are not modified afterwards.
type Report struct {
	// ScanID is the unique identifier of the scan.
	ScanID string `json:"scan_id"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last outcome was recorded (or when the report was
	// taken from an abandoned scan).
	FinishedAt time.Time `json:"finished_at"`

	// Total is the number of candidates submitted.
	Total int `json:"total"`

	// Processed is the number of candidates with a recorded outcome.
	Processed int `json:"processed"`

	// Active is the number of keys the endpoint accepted.
	Active int `json:"active"`

	// Cancelled is true when the scan was abandoned before completion.
	Cancelled bool `json:"cancelled"`

	// Results holds one entry per processed candidate, sorted by candidate.
	Results []Result `json:"results"`
}

// Summary returns the counters of the report as a Summary.
func (r *Report) Summary() Summary {
	state := ScanCollecting
	if r.Processed == r.Total {
		state = ScanCompleted
	}
	return Summary{
		ScanID:    r.ScanID,
		Total:     r.Total,
		Processed: r.Processed,
		Active:    r.Active,
		State:     state,
	}
}

// RemoteErrors returns the number of RemoteError outcomes.
func (r *Report) RemoteErrors() int {
	return r.count(OutcomeRemoteError)
}

// TransportErrors returns the number of TransportError outcomes.
func (r *Report) TransportErrors() int {
	return r.count(OutcomeTransportError)
}

// Duration returns how long the scan took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ActiveResults returns the results whose outcome is a Success.
func (r *Report) ActiveResults() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome.Active() {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) count(kind OutcomeKind) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Kind == kind {
			n++
		}
	}
	return n
}

// Views renders every result for output.
func (r *Report) Views(reveal bool) []ResultView {
	views := make([]ResultView, 0, len(r.Results))
	for _, res := range r.Results {
		views = append(views, res.View(reveal))
	}
	return views
}

// SortResults orders results by candidate value.
func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Candidate < results[j].Candidate
	})
}
