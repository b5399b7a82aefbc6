// Package log provides slog loggers that never print a credential in clear
// text.
//
// The SecureHandler wraps any slog.Handler and rewrites each record before
// it is handled:
//   - attributes whose name suggests a secret (cookie, token, password, ...)
//     are replaced by MaskValue
//   - string values that look like a secret as a whole (JWT, bearer and
//     basic credentials, AWS access keys, PEM private keys) are replaced by
//     MaskValue
//   - Google API keys anywhere in the message, a string value or an error are
//     rewritten to their masked form, e.g. "AIzaSy...3456"
//
// Verbose mode lowers the level to Debug; masking is applied at every level.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
