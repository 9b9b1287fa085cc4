package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
)

// Default executable names of the circulation model toolchain.
const (
	DefaultSerialExe   = "adcirc"
	DefaultParallelExe = "padcirc"
	DefaultPrepExe     = "adcprep"
	DefaultMPIExec     = "mpirun"
)

// Runner implements ports.Solver by launching the precompiled circulation
// model as a local process. Parallel runs go through the domain-decomposition
// preprocessor and mpirun; serial runs invoke the model directly. The runner
// never shells out: commands and arguments are fixed, only the case directory
// and process count vary.
type Runner struct {
	serialExe   string
	parallelExe string
	prepExe     string
	mpiExec     string
	logger      *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithExecutables overrides the solver executable names.
func WithExecutables(serial, parallel, prep string) RunnerOption {
	return func(r *Runner) {
		r.serialExe = serial
		r.parallelExe = parallel
		r.prepExe = prep
	}
}

// WithMPIExec overrides the MPI launcher.
func WithMPIExec(mpi string) RunnerOption {
	return func(r *Runner) { r.mpiExec = mpi }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a process runner with default executable names.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		serialExe:   DefaultSerialExe,
		parallelExe: DefaultParallelExe,
		prepExe:     DefaultPrepExe,
		mpiExec:     DefaultMPIExec,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return r
}

// exe resolves an executable name against the configured executable
// directory. Bare names fall through to PATH lookup.
func exe(exeDir, name string) string {
	if exeDir == "" {
		return name
	}
	return filepath.Join(exeDir, name)
}

// Run executes the solver in the case directory and blocks until it
// terminates. For NumProcs > 1 the mesh is partitioned and preprocessed
// first, then the parallel model is launched under MPI.
func (r *Runner) Run(ctx context.Context, spec ports.RunSpec) error {
	if spec.NumProcs > 1 {
		np := strconv.Itoa(spec.NumProcs)
		// Partition the mesh, then stage per-processor inputs.
		if err := r.runCommand(ctx, spec.CaseDir, exe(spec.ExeDir, r.prepExe), "--np", np, "--partmesh"); err != nil {
			return err
		}
		if err := r.runCommand(ctx, spec.CaseDir, exe(spec.ExeDir, r.prepExe), "--np", np, "--prepall"); err != nil {
			return err
		}
		return r.runCommand(ctx, spec.CaseDir, r.mpiExec, "-np", np, exe(spec.ExeDir, r.parallelExe))
	}
	return r.runCommand(ctx, spec.CaseDir, exe(spec.ExeDir, r.serialExe))
}

func (r *Runner) runCommand(ctx context.Context, dir, command string, args ...string) error {
	r.logger.Info("launching solver process",
		"command", command,
		"args", strings.Join(args, " "),
		"dir", dir)

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	runErr := &domain.ExternalRunError{
		Dir:     dir,
		Command: fmt.Sprintf("%s %s", command, strings.Join(args, " ")),
		Stderr:  strings.TrimSpace(stderr.String()),
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		runErr.ExitCode = exitErr.ExitCode()
	}
	r.logger.Error("solver process failed",
		"command", command,
		"exit_code", runErr.ExitCode,
		"stderr", runErr.Stderr)
	return runErr
}
