package generation

import "fmt"

// Error marks a failure of the upstream content generator. Handlers map it
// to a 502 so callers can distinguish "the model failed" from their own
// bad input. It always wraps the underlying provider error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
