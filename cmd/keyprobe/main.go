// Package main provides the entry point for the keyprobe CLI.
//
// keyprobe finds Google AI API keys (AIza...) in text and checks which of
// them are live by listing the models each key can reach.
//
// Usage:
//
//	keyprobe scan leaked.txt
//	cat dump.log | keyprobe scan
//
// See --help for all available options.
package main

func main() {
	Execute()
}
