package dispatch

import (
	"context"

	"github.com/nao1215/keyprobe/internal/model"
)

// EventKind identifies the type of a streamed Event.
type EventKind int

const (
	// EventResult carries a candidate's outcome.
	EventResult EventKind = iota + 1
	// EventFinished marks a candidate's worker as done.
	EventFinished
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is one Handler call rendered as a value.
// Outcome is only set for EventResult.
type Event struct {
	Kind      EventKind
	Candidate model.Candidate
	Outcome   model.Outcome
}

// Stream runs the dispatcher in the background and delivers its events on a
// channel. For each candidate its EventResult precedes its EventFinished.
//
// The events channel is closed after the last event, then the error channel
// receives Run's return value and is closed. The events channel is buffered
// for every event of the run, so workers never block on a slow consumer.
func (d *Dispatcher) Stream(ctx context.Context, candidates model.CandidateSet) (<-chan Event, <-chan error) {
	events := make(chan Event, 2*len(candidates))
	errc := make(chan error, 1)

	go func() {
		defer close(errc)

		err := d.Run(ctx, candidates, HandlerFuncs{
			Result: func(c model.Candidate, o model.Outcome) {
				events <- Event{Kind: EventResult, Candidate: c, Outcome: o}
			},
			Finished: func(c model.Candidate) {
				events <- Event{Kind: EventFinished, Candidate: c}
			},
		})

		close(events)
		errc <- err
	}()

	return events, errc
}
