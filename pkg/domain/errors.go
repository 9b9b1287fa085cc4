package domain

import (
	"errors"
	"fmt"
)

// ErrPhaseStateNotFound is returned when a case directory has no persisted
// phase record in the store.
var ErrPhaseStateNotFound = errors.New("phase state not found")

// ErrCaseLocked is returned when another orchestrator instance holds the
// lock for a case directory.
var ErrCaseLocked = errors.New("case directory is locked by another run")

// SetupError indicates that subdomain setup could not proceed, typically
// because the extraction-region geometry is missing or degenerate.
type SetupError struct {
	Dir    string
	Reason string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed for %s: %s", e.Dir, e.Reason)
}

// MissingInputError indicates that a required upstream artifact does not
// exist yet. It is surfaced as a user-visible halt, naming the file so the
// operator can re-run only the missing phase.
type MissingInputError struct {
	Dir      string
	Artifact string
	Hint     string
}

func (e *MissingInputError) Error() string {
	msg := fmt.Sprintf("required input %s does not exist in %s", e.Artifact, e.Dir)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// ExternalRunError indicates that the external solver process exited
// non-zero or could not be started.
type ExternalRunError struct {
	Dir      string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalRunError) Error() string {
	if e.Err != nil && e.ExitCode == 0 {
		return fmt.Sprintf("solver invocation %q in %s failed: %v", e.Command, e.Dir, e.Err)
	}
	return fmt.Sprintf("solver %q in %s exited with code %d: %s", e.Command, e.Dir, e.ExitCode, e.Stderr)
}

func (e *ExternalRunError) Unwrap() error { return e.Err }

// VariableNotFoundError indicates that a requested comparison variable is
// absent from one of the two output sets.
type VariableNotFoundError struct {
	Variable string
	Dir      string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("output variable %s not found in %s", e.Variable, e.Dir)
}

// MappingError indicates that the spatial correspondence could not be
// resolved for a subdomain node.
type MappingError struct {
	SubNode int
	Reason  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("no fulldomain correspondence for subdomain node %d: %s", e.SubNode, e.Reason)
}
