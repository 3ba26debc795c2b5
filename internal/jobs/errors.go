package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning rejects a Start while another run is active.
	ErrAlreadyRunning = errors.New("a scraping job is already running")
	// ErrBusy rejects ClearLogs while a run is active.
	ErrBusy = errors.New("cannot clear logs while a scraping job is running")
	// ErrNotRunning rejects Cancel when there is nothing to cancel.
	ErrNotRunning = errors.New("no scraping job is running")
	// ErrClosed rejects a Start after Shutdown.
	ErrClosed = errors.New("job runner is shut down")
)

// ValidationError reports a malformed start request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
