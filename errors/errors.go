package errors

import "fmt"

var (
	ErrWorkerPanic           = fmt.Errorf("worker panic")
	ErrEmptyMessage          = fmt.Errorf("message is empty")
	ErrContentTooLong        = fmt.Errorf("message exceeds maximum length")
	ErrSubmitInFlight        = fmt.Errorf("a send attempt is already in flight")
	ErrModerationUnavailable = fmt.Errorf("moderation service unavailable")
	ErrMessageRejected       = fmt.Errorf("message rejected by moderation")
	ErrNotSignedIn           = fmt.Errorf("not signed in")
	ErrEmptyWords            = fmt.Errorf("no words have been found")
)
