package core

// ListenerState is the lifecycle of a Listener:
//
//	Idle -> Bound -> Accepting -> Receiving -> Bound ... -> Closed
type ListenerState int32

const (
	StateIdle ListenerState = iota
	StateBound
	StateAccepting
	StateReceiving
	StateClosed
)

func (s ListenerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBound:
		return "bound"
	case StateAccepting:
		return "accepting"
	case StateReceiving:
		return "receiving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
