// Package report renders a finished scan.
//
// Writers for three formats share the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for other tools
//   - MarkdownWriter: GitHub flavored Markdown with tables, alerts and a
//     mermaid pie chart of the outcomes
//
// Keys are masked ("AIzaSy...3456") unless WithReveal(true) is given. The
// JSON output always carries each key's SHA3-256 fingerprint so results can
// be correlated without exposing the key.
package report
