// Package dispatch runs one probe per candidate on a bounded pool of
// goroutines.
//
// The Dispatcher keeps no aggregate state. For every candidate it calls the
// Handler twice, first OnResult and then OnFinished, from the goroutine that
// ran the probe. Completion order across candidates is arbitrary.
//
// At most the configured number of probes are in flight at once. Each probe
// gets its own context bounded by the per-request timeout, so a hung remote
// can never stall a worker for longer than that. Once the parent context is
// cancelled no new probe is started. Probes already in flight are not
// interrupted: they keep the parent's values but not its cancellation, end
// at their timeout at the latest, and Run waits for them before returning.
package dispatch
