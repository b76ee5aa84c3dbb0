package state

import (
	"encoding/json"
	"strings"
)

// PierSide is the side of the pier the tube sits on after a meridian flip.
type PierSide int

const (
	PierUnknown PierSide = iota
	PierEast
	PierWest
)

// ParsePierSide accepts any capitalisation of "east"/"west"; everything
// else is PierUnknown.
func ParsePierSide(s string) PierSide {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "east":
		return PierEast
	case "west":
		return PierWest
	default:
		return PierUnknown
	}
}

func (p PierSide) String() string {
	switch p {
	case PierEast:
		return "East"
	case PierWest:
		return "West"
	case PierUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

func (p PierSide) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PierSide) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePierSide(s)
	return nil
}

// ShutterState is the dome shutter's reported state.
type ShutterState int

const (
	ShutterUnknown ShutterState = iota
	ShutterOpen
	ShutterClosed
	ShutterOpening
	ShutterClosing
)

func ParseShutterState(s string) ShutterState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return ShutterOpen
	case "closed":
		return ShutterClosed
	case "opening":
		return ShutterOpening
	case "closing":
		return ShutterClosing
	default:
		return ShutterUnknown
	}
}

func (s ShutterState) String() string {
	switch s {
	case ShutterOpen:
		return "open"
	case ShutterClosed:
		return "closed"
	case ShutterOpening:
		return "opening"
	case ShutterClosing:
		return "closing"
	case ShutterUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func (s ShutterState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ShutterState) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ParseShutterState(v)
	return nil
}

// ConnectionStatus summarises the health of the last tick.
type ConnectionStatus int

const (
	// Disconnected is the idle state before the first tick and the state
	// after a tick in which the control server could not be reached.
	Disconnected ConnectionStatus = iota
	// Connected means the last tick produced system data.
	Connected
	// Error means the server answered but system data was missing.
	Error
)

func (c ConnectionStatus) String() string {
	switch c {
	case Connected:
		return "connected"
	case Error:
		return "error"
	case Disconnected:
		return "disconnected"
	default:
		return "disconnected"
	}
}

func (c ConnectionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}
