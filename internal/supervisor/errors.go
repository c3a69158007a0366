package supervisor

import "fmt"

// SpawnError reports that the OS could not create the server process.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TerminationError reports that the OS refused to terminate the process.
// The supervisor has already forgotten the handle when this is returned.
type TerminationError struct {
	PID int
	Err error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("terminate pid %d: %v", e.PID, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }
