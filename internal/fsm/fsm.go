package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateArmed      State = "armed"
	StateTerminated State = "terminated"
)

const (
	EventWake    Event = "wake"
	EventTimeout Event = "timeout"
	EventCancel  Event = "cancel"
)

// Transition returns the gate state after event. Cancel terminates from any
// live state; a terminated gate accepts nothing.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventWake:
			return StateArmed, nil
		case EventCancel:
			return StateTerminated, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateArmed:
		switch event {
		case EventWake:
			return StateArmed, nil
		case EventTimeout:
			return StateIdle, nil
		case EventCancel:
			return StateTerminated, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTerminated:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
