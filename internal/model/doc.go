// Package model defines the core data structures shared by keyprobe packages.
//
// This package contains the following main types:
//   - Candidate: a string that structurally looks like a Google AI API key
//   - ModelInfo: one model advertised by the remote inventory endpoint
//   - Outcome: the classified result of one validation probe
//   - Summary: a point-in-time view of a scan's counters
//   - Report: the immutable final view of a completed (or abandoned) scan
//
// The types live in their own package because the extractor, prober,
// dispatcher, session, report writers and database all exchange them.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
