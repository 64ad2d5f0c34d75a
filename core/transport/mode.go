package transport

import (
	"fmt"
	"strings"
)

// Mode selects how requests reach the provider. It is decided by the host
// application, never inferred per call.
type Mode int

const (
	// ModeDirect calls provider endpoints directly.
	ModeDirect Mode = iota
	// ModeProxied posts every call to the relay as an Envelope.
	ModeProxied
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeProxied:
		return "proxied"
	default:
		return "unknown"
	}
}

// ParseMode parses "direct" or "proxied" ("proxy" is accepted too).
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "direct":
		return ModeDirect, nil
	case "proxied", "proxy":
		return ModeProxied, nil
	default:
		return ModeDirect, fmt.Errorf("unknown transport mode %q", value)
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Phase is the state of one call.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDispatching
	PhaseStreaming
	PhaseBuffered
	PhaseCompleted
	PhaseFailed
)

var phaseNames = [...]string{"idle", "dispatching", "streaming", "buffered", "completed", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}
