package world

import "fmt"

// Status is the wire-level error taxonomy from the protocol's status field.
// It is a strict one-to-one enum: every Status maps to exactly one uint16
// wire code and back. §9 flags the original source's status-mapping switch
// as plausibly missing `break` statements, collapsing most codes to the
// last-assigned value; that is treated as unintended here and never
// replicated.
type Status uint16

const (
	StatusOk Status = iota
	StatusOutOfMemory
	StatusInvalidAgentID
	StatusPermissionError
	StatusAgentAlreadyActed
	StatusAgentAlreadyExists
	StatusServerParseError
	StatusClientParseError
	StatusServerOOM
	StatusClientOOM
	StatusInvalidConfiguration
	StatusIoError
	StatusLostConnection
	StatusMpiError
)

var statusNames = map[Status]string{
	StatusOk:                   "Ok",
	StatusOutOfMemory:          "OutOfMemory",
	StatusInvalidAgentID:       "InvalidAgentId",
	StatusPermissionError:      "PermissionError",
	StatusAgentAlreadyActed:    "AgentAlreadyActed",
	StatusAgentAlreadyExists:   "AgentAlreadyExists",
	StatusServerParseError:     "ServerParseError",
	StatusClientParseError:     "ClientParseError",
	StatusServerOOM:            "ServerOOM",
	StatusClientOOM:            "ClientOOM",
	StatusInvalidConfiguration: "InvalidConfiguration",
	StatusIoError:              "IoError",
	StatusLostConnection:       "LostConnection",
	StatusMpiError:             "MpiError",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint16(s))
}

// WireCode returns the status's little-endian u16 wire representation,
// which is simply its ordinal value — the one-to-one mapping §9 requires.
func (s Status) WireCode() uint16 { return uint16(s) }

// StatusFromWireCode reverses WireCode.
func StatusFromWireCode(code uint16) Status { return Status(code) }

// Error wraps a Status as a standard error, preserving the wire code so the
// protocol layer and the in-process API share one taxonomy.
type Error struct {
	Status  Status
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status.String()
}

// Is allows errors.Is(err, world.StatusX.Err()) comparisons by Status value.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Status == e.Status
}

// Err constructs a plain *Error for this status, with no extra message.
func (s Status) Err() error { return &Error{Status: s} }

// Errf constructs an *Error for this status with a formatted message.
func (s Status) Errf(format string, args ...any) error {
	return &Error{Status: s, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the wire Status from any error returned by this
// package, defaulting to StatusIoError for unrecognized errors so callers
// always have a status to report on the wire.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOk
	}
	if werr, ok := err.(*Error); ok {
		return werr.Status
	}
	return StatusIoError
}
