package scanner

import "errors"

var (
	// ErrNoCandidates is returned by StartScan when the input holds no
	// candidate keys. It is not a failure; no scan is created.
	ErrNoCandidates = errors.New("no candidate keys found in input")

	// ErrScanCancelled is returned by Scan.Wait when the scan was cancelled
	// before every candidate was probed.
	ErrScanCancelled = errors.New("scan cancelled")
)
