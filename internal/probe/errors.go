package probe

import "errors"

// Configuration errors returned by NewHTTPProber.
var (
	// ErrInvalidEndpoint is returned when the endpoint is not an absolute
	// http or https URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint: expected an absolute http(s) URL")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not
	// in "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")
)
