package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
)

// Case is a handle over one persistent case directory: the directory path,
// the solver executable location, and a cached view of which artifacts
// currently exist. A Case is never run concurrently with itself; the
// orchestrator holds the case lock for the duration of a pipeline.
type Case struct {
	Path   string
	ExeDir string

	logger    *slog.Logger
	artifacts map[string]bool
	mesh      *domain.Mesh
	meshMod   time.Time
}

// NewCase creates a handle for the given directory. The directory must
// exist; artifact knowledge is empty until Update is called.
func NewCase(path, exeDir string, logger *slog.Logger) *Case {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Case{
		Path:      path,
		ExeDir:    exeDir,
		logger:    logger.With("case", path),
		artifacts: make(map[string]bool),
	}
}

// Update refreshes the cached artifact listing from disk and invalidates the
// parsed mesh when the grid file changed underneath us.
func (c *Case) Update() error {
	entries, err := os.ReadDir(c.Path)
	if err != nil {
		return err
	}
	c.artifacts = make(map[string]bool, len(entries))
	for _, e := range entries {
		c.artifacts[e.Name()] = true
	}

	if info, err := os.Stat(filepath.Join(c.Path, fort.GridFile)); err == nil {
		if !info.ModTime().Equal(c.meshMod) {
			c.mesh = nil
		}
	} else {
		c.mesh = nil
	}
	return nil
}

// HasArtifact reports whether a file matching the glob pattern exists in the
// case directory right now. Existence checks always hit the filesystem: the
// listing cache is for reporting, the predicates are the source of truth.
func (c *Case) HasArtifact(pattern string) bool {
	matches, _ := filepath.Glob(filepath.Join(c.Path, pattern))
	return len(matches) > 0
}

// ArtifactPath joins a file name onto the case directory.
func (c *Case) ArtifactPath(name string) string {
	return filepath.Join(c.Path, name)
}

// Artifacts returns the cached directory listing from the last Update.
func (c *Case) Artifacts() []string {
	out := make([]string, 0, len(c.artifacts))
	for name := range c.artifacts {
		out = append(out, name)
	}
	return out
}

// Mesh lazily parses the grid file. The parse result is cached until Update
// observes a new grid modification time.
func (c *Case) Mesh() (*domain.Mesh, error) {
	if c.mesh != nil {
		return c.mesh, nil
	}
	path := filepath.Join(c.Path, fort.GridFile)
	info, err := os.Stat(path)
	if err != nil {
		return nil, &domain.MissingInputError{Dir: c.Path, Artifact: fort.GridFile}
	}
	mesh, err := fort.ReadGrid(path)
	if err != nil {
		return nil, err
	}
	c.mesh = mesh
	c.meshMod = info.ModTime()
	return mesh, nil
}

// Run invokes the external parallel solver through the given port and
// blocks until the process terminates.
func (c *Case) Run(ctx context.Context, solver ports.Solver, numProcs int) error {
	if solver == nil {
		return &domain.ExternalRunError{Dir: c.Path, Command: "solver", Err: errNoSolver}
	}
	c.logger.Info("starting solver run", "num_procs", numProcs, "exe_dir", c.ExeDir)
	err := solver.Run(ctx, ports.RunSpec{CaseDir: c.Path, NumProcs: numProcs, ExeDir: c.ExeDir})
	if err != nil {
		c.logger.Error("solver run failed", "error", err)
		return err
	}
	c.logger.Info("solver run finished")
	return c.Update()
}

var errNoSolver = errors.New("no solver configured")
