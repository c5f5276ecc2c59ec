package did

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey indicates that the client was configured without credentials.
	ErrMissingAPIKey = errors.New("did: api key is required")
	// ErrEmptyScript indicates a submission without any script text.
	ErrEmptyScript = errors.New("did: script is required")
	// ErrAwaitTimeout indicates that a talk did not reach a terminal status
	// within the configured timeout.
	ErrAwaitTimeout = errors.New("did: await timed out")
)

// SubmitError reports a failed talk creation. Body carries the raw provider
// response when one was received.
type SubmitError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("did: create talk: %v", e.Err)
	}
	return fmt.Sprintf("did: create talk: status %d: %s", e.StatusCode, e.Body)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// PollError reports a failed status poll or a talk that ended in the error
// status. Message holds the provider diagnostic when the job itself failed;
// Err holds the transport or decoding cause otherwise.
type PollError struct {
	TalkID  string
	Message string
	Err     error
}

func (e *PollError) Error() string {
	switch {
	case e.Message != "" && e.TalkID != "":
		return fmt.Sprintf("did: talk %s failed: %s", e.TalkID, e.Message)
	case e.Message != "":
		return "did: talk failed: " + e.Message
	case e.Err != nil && e.TalkID != "":
		return fmt.Sprintf("did: poll talk %s: %v", e.TalkID, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("did: poll talk: %v", e.Err)
	default:
		return "did: poll talk failed"
	}
}

func (e *PollError) Unwrap() error { return e.Err }
