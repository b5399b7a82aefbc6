// Package probe validates a single candidate key against the remote
// inventory endpoint and classifies the answer into a model.Outcome.
//
// A Prober performs exactly one request per call, never retries, and always
// returns an outcome. Every failure mode (remote rejection, malformed body,
// timeout, DNS, refused connection, TLS) is reported through the outcome
// rather than as a Go error, so one candidate can never abort a scan.
//
// # Wire protocol
//
//	GET https://generativelanguage.googleapis.com/v1beta/models?key=<candidate>
//
// A 200 response carries {"models":[{"name":...,"description":...}]};
// an error response carries {"error":{"message":...}}.
package probe
