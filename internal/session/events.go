package session

import "fmt"

// State is the coordinator's lifecycle state.
type State int

const (
	// StateIdle means the assistant is passively listening for the wake phrase.
	StateIdle State = iota

	// StateAwake means the wake phrase fired and the assistant is waiting for a
	// command. An inactivity timer returns the session to StateIdle.
	StateAwake

	// StateProcessing means a command is being answered. Further wake phrases
	// and transcripts are ignored until the reply has been spoken and a short
	// grace period has passed.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwake:
		return "awake"
	case StateProcessing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind discriminates the Event union.
type EventKind int

const (
	// EventReady signals that the audio pipeline finished starting up.
	EventReady EventKind = iota

	// EventWake signals that the wake phrase was detected in a transcript.
	EventWake

	// EventCommand carries a final transcript received while the session is
	// awake. Text holds the transcript.
	EventCommand

	// EventResponse carries the responder's reply for the in-flight command.
	// Text holds the reply.
	EventResponse

	// EventError carries a background failure from the pipeline. Err holds the
	// error.
	EventError

	// internal timer events, posted by the coordinator to itself so all state
	// transitions happen on the event loop
	eventAwakeTimeout
	eventGraceDone
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventWake:
		return "wake"
	case EventCommand:
		return "command"
	case EventResponse:
		return "response"
	case EventError:
		return "error"
	case eventAwakeTimeout:
		return "awake_timeout"
	case eventGraceDone:
		return "grace_done"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is the tagged union consumed by the coordinator's event loop.
type Event struct {
	Kind EventKind

	// Text carries transcript or reply text for EventCommand and EventResponse.
	Text string

	// Err carries the failure for EventError.
	Err error

	// gen guards internal timer events against firing for a stale state.
	gen int
}
