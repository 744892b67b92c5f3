package handler

import "fmt"

// ResponseState tracks how far a relayed response has progressed. Once
// headers are sent an error can no longer be reported as JSON.
type ResponseState int

const (
	StateNotStarted ResponseState = iota
	StateHeadersSent
	StateStreaming
	StateClosed
)

func (s ResponseState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateHeadersSent:
		return "headers_sent"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("ResponseState(%d)", int(s))
}

// StreamPipeError reports a failure while relaying a media body.
type StreamPipeError struct {
	State ResponseState
	Err   error
}

func (e *StreamPipeError) Error() string {
	return fmt.Sprintf("stream pipe (%s): %v", e.State, e.Err)
}

func (e *StreamPipeError) Unwrap() error { return e.Err }
