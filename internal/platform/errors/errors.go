package apperrors

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrMissingLaunchParams = errors.New("Missing experiment_id or PROLIFIC_PID in URL")
	ErrSessionInvalid      = errors.New("session expired")
	ErrEmptyAnswer         = errors.New("please provide an answer")
	ErrInvalidConfidence   = errors.New("confidence must be between 1 and 5")
	ErrNotPresenting       = errors.New("no question is awaiting an answer")
	ErrStaleResult         = errors.New("stale result")
	ErrSessionTerminal     = errors.New("session already ended")
	ErrRejected            = errors.New("submission was not accepted")
)

// RemoteError is a non-success response from the survey server. Its message
// is the response body as sent, so it can be shown to the rater unchanged.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body != "" {
		return body
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return "remote error"
}
