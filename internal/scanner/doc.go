// Package scanner is the entry point for running a key scan.
//
// StartScan extracts candidates from raw text, creates a session for them,
// and dispatches one probe per candidate in the background. Progress is
// reported to a Listener as it happens, and the returned Scan handle gives
// access to live counters, cancellation and the final report.
//
//	s := scanner.New(prober)
//	scan, err := s.StartScan(ctx, text, 8, 10*time.Second, listener)
//	if errors.Is(err, scanner.ErrNoCandidates) {
//		// nothing to do
//	}
//	report, err := scan.Wait(ctx)
package scanner
