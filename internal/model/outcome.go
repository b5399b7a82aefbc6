package model

import (
	"fmt"
	"strings"
)

// Default values applied when the remote payload omits a model attribute.
const (
	DefaultModelName        = "Unknown"
	DefaultModelDescription = "No description available"
)

// ModelInfo describes one model that a key is allowed to list.
type ModelInfo struct {
	// Name is the resource name reported by the API, e.g. "models/gemini-pro".
	Name string `json:"name"`

	// Description is the human readable description of the model.
	Description string `json:"description"`
}

// NewModelInfo creates a ModelInfo, substituting the defaults for empty values.
func NewModelInfo(name, description string) ModelInfo {
	if strings.TrimSpace(name) == "" {
		name = DefaultModelName
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultModelDescription
	}
	return ModelInfo{Name: name, Description: description}
}

// OutcomeKind tags which variant of Outcome is populated.
type OutcomeKind int

const (
	// OutcomeUnknown is the zero value and never produced by a prober.
	OutcomeUnknown OutcomeKind = iota

	// OutcomeSuccess means the endpoint accepted the key and listed its models.
	OutcomeSuccess

	// OutcomeRemoteError means the endpoint was reached but rejected the request
	// or answered with a body that could not be understood.
	OutcomeRemoteError

	// OutcomeTransportError means the endpoint could not be reached at all
	// (timeout, DNS, refused connection, TLS failure).
	OutcomeTransportError
)

// String returns the stable, lower case name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "active"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Label returns the upper case status label used in human readable output.
func (k OutcomeKind) Label() string {
	switch k {
	case OutcomeSuccess:
		return "ACTIVE"
	case OutcomeRemoteError, OutcomeTransportError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OutcomeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*k = OutcomeSuccess
	case "remote_error":
		*k = OutcomeRemoteError
	case "transport_error":
		*k = OutcomeTransportError
	case "unknown", "":
		*k = OutcomeUnknown
	default:
		return fmt.Errorf("unknown outcome kind %q", string(text))
	}
	return nil
}

// Outcome is the classified result of one probe. Exactly one variant is
// populated, selected by Kind. Outcomes are created with Success, RemoteError
// or TransportError and are never modified afterwards.
type Outcome struct {
	// Kind selects the populated variant.
	Kind OutcomeKind `json:"status"`

	// Models lists the models reachable with the key. Only set for OutcomeSuccess;
	// an active key with zero models is valid.
	Models []ModelInfo `json:"models,omitempty"`

	// Message describes the failure for the two error variants.
	Message string `json:"message,omitempty"`

	// StatusCode is the HTTP status returned with a remote error.
	StatusCode int `json:"status_code,omitempty"`
}

// Success creates an Outcome for an accepted key. The models slice is copied.
func Success(models []ModelInfo) Outcome {
	copied := make([]ModelInfo, len(models))
	copy(copied, models)
	return Outcome{Kind: OutcomeSuccess, Models: copied}
}

// RemoteError creates an Outcome for a request the remote service rejected.
func RemoteError(statusCode int, message string) Outcome {
	return Outcome{Kind: OutcomeRemoteError, StatusCode: statusCode, Message: message}
}

// TransportError creates an Outcome for a request that never got an answer.
func TransportError(message string) Outcome {
	return Outcome{Kind: OutcomeTransportError, Message: message}
}

// Active reports whether the outcome is a Success.
func (o Outcome) Active() bool {
	return o.Kind == OutcomeSuccess
}

// Detail returns a one-line description: the model count for active keys,
// the error message otherwise.
func (o Outcome) Detail() string {
	if o.Active() {
		if len(o.Models) == 1 {
			return "1 model found"
		}
		return fmt.Sprintf("%d models found", len(o.Models))
	}
	if o.Message == "" {
		return o.Kind.String()
	}
	return o.Message
}
