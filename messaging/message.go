package messaging

import "fmt"

// State is the activation state of a System.
type State int

const (
	StateUninitialized State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Message is a request from a foreign caller, tagged with the correlation
// id assigned by Send.
type Message struct {
	ID   int64
	Data any
}

// Response carries the answer for the request with the same ID.
type Response struct {
	ID     int64
	Result any
}

func (m Message) String() string {
	return fmt.Sprintf("Message{ID: %d, Data: %v}", m.ID, m.Data)
}

func (r Response) String() string {
	return fmt.Sprintf("Response{ID: %d, Result: %v}", r.ID, r.Result)
}
