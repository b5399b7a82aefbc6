package model

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// CandidatePrefix is the fixed prefix of every Google AI API key.
const CandidatePrefix = "AIza"

// CandidateLength is the total length of a well-formed key (prefix + 35 characters).
const CandidateLength = 39

// Candidate is a token that structurally resembles a Google AI API key but
// has not been validated yet. Its identity is its exact string value.
type Candidate string

// String returns the full, unmasked candidate value.
func (c Candidate) String() string {
	return string(c)
}

// Masked returns the candidate with everything but the first 6 and the last 4
// characters hidden, e.g. "AIzaSy...3456". Values too short to mask are
// replaced entirely.
func (c Candidate) Masked() string {
	s := string(c)
	if len(s) <= 10 {
		return "***"
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// Fingerprint returns the hex encoded SHA3-256 digest of the candidate.
// It identifies a key across scans without storing the key itself.
func (c Candidate) Fingerprint() string {
	sum := sha3.Sum256([]byte(c))
	return hex.EncodeToString(sum[:])
}

// CandidateSet is a deduplicated, lexicographically sorted list of candidates.
type CandidateSet []Candidate

// Len returns the number of candidates in the set.
func (s CandidateSet) Len() int {
	return len(s)
}

// Contains reports whether c is a member of the set.
func (s CandidateSet) Contains(c Candidate) bool {
	for _, x := range s {
		if x == c {
			return true
		}
	}
	return false
}

// Strings returns the candidates as plain strings.
func (s CandidateSet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}
