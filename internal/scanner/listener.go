package scanner

import "github.com/nao1215/keyprobe/internal/model"

// Listener receives scan progress. Methods are called from worker
// goroutines and must be safe for concurrent use.
//
// For each candidate OnCandidateResult is called before
// OnCandidateFinished. OnScanCompleted is called exactly once, after the
// last OnCandidateFinished, and only if the scan was not cancelled.
type Listener interface {
	OnCandidateResult(candidate model.Candidate, outcome model.Outcome)
	OnCandidateFinished(candidate model.Candidate)
	OnScanCompleted(summary model.Summary)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Result    func(candidate model.Candidate, outcome model.Outcome)
	Finished  func(candidate model.Candidate)
	Completed func(summary model.Summary)
}

// OnCandidateResult calls l.Result if set.
func (l ListenerFuncs) OnCandidateResult(candidate model.Candidate, outcome model.Outcome) {
	if l.Result != nil {
		l.Result(candidate, outcome)
	}
}

// OnCandidateFinished calls l.Finished if set.
func (l ListenerFuncs) OnCandidateFinished(candidate model.Candidate) {
	if l.Finished != nil {
		l.Finished(candidate)
	}
}

// OnScanCompleted calls l.Completed if set.
func (l ListenerFuncs) OnScanCompleted(summary model.Summary) {
	if l.Completed != nil {
		l.Completed(summary)
	}
}
