package controlserver

import "codeberg.org/mutker/obsctl/internal/errors"

const (
	ErrInvalidBaseURL   = errors.ErrorCode("controlserver_invalid_base_url")
	ErrInvalidDirection = errors.ErrorCode("controlserver_invalid_direction")
	ErrInvalidSlewType  = errors.ErrorCode("controlserver_invalid_slew_type")
	ErrBuildRequest     = errors.ErrorCode("controlserver_build_request_failed")

	// Transport failures carry the shared unreachable code so callers can
	// tell "server down" apart from "server answered with an error".
	ErrUnreachable = errors.ErrUnreachable
	ErrBadStatus   = errors.ErrSourceStatus
	ErrDecode      = errors.ErrSourceDecode
)

// StatusError describes a non-2xx response.
type StatusError struct {
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e StatusError) String() string {
	return e.Path + ": " + e.Status + " - " + e.Body
}
