// Package dictation runs the Idle, Recording, Transcribing, Typing cycle and
// publishes lifecycle events for everything that watches it.
package dictation

type State int

const (
	Idle State = iota
	Recording
	Transcribing
	Typing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	case Typing:
		return "typing"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
