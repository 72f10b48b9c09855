package engine

import "fmt"

// State is the playback state of the engine.
type State int

const (
	// Stopped: nothing is playing. The initial state, and the state after
	// Stop or the end of the plan.
	Stopped State = iota
	// Playing: frames are being dispatched against the clock.
	Playing
	// Paused: timers are canceled and the position is retained for resume.
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState parses the String form of a State.
func ParseState(s string) (State, error) {
	switch s {
	case "stopped":
		return Stopped, nil
	case "playing":
		return Playing, nil
	case "paused":
		return Paused, nil
	default:
		return Stopped, fmt.Errorf("unknown playback state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
