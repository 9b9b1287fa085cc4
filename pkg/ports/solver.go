package ports

import "context"

// RunSpec describes one external solver invocation.
type RunSpec struct {
	// CaseDir is the case directory the solver runs in. Its input
	// artifacts must already be staged.
	CaseDir string
	// NumProcs is the number of parallel worker processes. It must not
	// exceed the allocation granted by the enclosing scheduler job.
	NumProcs int
	// ExeDir is the directory holding the precompiled solver executables.
	ExeDir string
}

// Solver launches the external circulation solver and blocks until the
// process terminates. Implementations return *domain.ExternalRunError when
// the process exits non-zero or required inputs are absent.
type Solver interface {
	Run(ctx context.Context, spec RunSpec) error
}
