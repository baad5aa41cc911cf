package scan

import (
	"fmt"
	"time"

	"github.com/zombor/scout-scanner/internal/analysis"
)

// State is the lifecycle position of a scan session
type State int

const (
	Idle State = iota
	Uploading
	AwaitingRendezvous
	Preview
	Complete
)

var stateNames = map[State]string{
	Idle:               "idle",
	Uploading:          "uploading",
	AwaitingRendezvous: "awaiting_rendezvous",
	Preview:            "preview",
	Complete:           "complete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown scan state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown scan state %q", string(text))
}

// Image is the user-selected photo. The coordinator never looks inside Data.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Snapshot is a copy of the coordinator's current session for rendering
type Snapshot struct {
	SessionID     string
	State         State
	AnimationDone bool
	Result        *analysis.Result
	Image         *Image
	Err           error
}

// Transition is reported to listeners every time a session changes state.
// Err is only set on the transition into Idle that ends a failed session.
type Transition struct {
	SessionID string
	From      State
	To        State
	Err       error
	Result    *analysis.Result
	At        time.Time
}

// session is the single entity the coordinator owns
type session struct {
	id            string
	state         State
	image         Image
	result        *analysis.Result
	animationDone bool
	err           error

	// live is false once the session is superseded, reset or failed
	live   bool
	cancel func()

	rendezvous Timer
	dwell      Timer
	// armGen identifies the currently armed rendezvous timer
	armGen uint64
}
