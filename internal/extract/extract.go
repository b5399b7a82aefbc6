// Package extract finds candidate Google AI API keys in unstructured text.
//
// The extractor is a pure function: no I/O, no global state, and the same
// input always yields the same output.
package extract

import (
	"regexp"
	"sort"

	"github.com/nao1215/keyprobe/internal/model"
)

// keyPattern matches the fixed structure of a Google AI API key:
// the "AIza" prefix followed by exactly 35 URL-safe base64 characters.
var keyPattern = regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)

// Extract returns every non-overlapping substring of text that matches the
// key pattern, deduplicated and sorted lexicographically.
// Text without a match yields an empty set.
func Extract(text string) model.CandidateSet {
	matches := keyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	set := make(model.CandidateSet, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		set = append(set, model.Candidate(m))
	}

	sort.Slice(set, func(i, j int) bool {
		return set[i] < set[j]
	})
	return set
}

// IsCandidate reports whether s is exactly one well-formed key.
func IsCandidate(s string) bool {
	loc := keyPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
