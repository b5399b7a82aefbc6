// Package database provides the SQLite-backed scan history of keyprobe.
//
// History is opt-in. Every saved scan gets one row in the scans table and
// one row per candidate in key_results. Keys are never stored in clear text:
// a result is identified by the SHA3-256 fingerprint of its key and shown by
// its masked form, so the database can be shared without leaking
// credentials.
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver, and opened in
// WAL mode with a single connection.
package database
