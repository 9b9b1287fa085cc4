package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript drops an executable shell script into dir.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures are POSIX only")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
}

func TestRunnerSerialSuccess(t *testing.T) {
	exeDir := t.TempDir()
	caseDir := t.TempDir()
	// The fake solver proves it ran in the case directory by leaving an
	// output file there.
	writeScript(t, exeDir, "adcirc", "echo done > solver.ran\n")

	r := NewRunner()
	err := r.Run(context.Background(), ports.RunSpec{CaseDir: caseDir, NumProcs: 1, ExeDir: exeDir})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(caseDir, "solver.ran"))
	assert.NoError(t, err, "solver must run inside the case directory")
}

func TestRunnerNonZeroExit(t *testing.T) {
	exeDir := t.TempDir()
	writeScript(t, exeDir, "adcirc", "echo boundary file missing >&2\nexit 3\n")

	r := NewRunner()
	err := r.Run(context.Background(), ports.RunSpec{CaseDir: t.TempDir(), NumProcs: 1, ExeDir: exeDir})

	var runErr *domain.ExternalRunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 3, runErr.ExitCode)
	assert.Contains(t, runErr.Stderr, "boundary file missing")
}

func TestRunnerMissingExecutable(t *testing.T) {
	r := NewRunner(WithExecutables("definitely-not-a-solver", "padcirc", "adcprep"))
	err := r.Run(context.Background(), ports.RunSpec{CaseDir: t.TempDir(), NumProcs: 1})

	var runErr *domain.ExternalRunError
	require.ErrorAs(t, err, &runErr)
	assert.Zero(t, runErr.ExitCode)
}

func TestRunnerParallelSequence(t *testing.T) {
	exeDir := t.TempDir()
	caseDir := t.TempDir()

	// Each stage appends its name; the parallel run must see partmesh,
	// prepall, then the MPI launch in that order.
	writeScript(t, exeDir, "adcprep", `echo "prep $2 $3" >> stages.log`+"\n")
	writeScript(t, exeDir, "fake-mpirun", `echo "mpi $1 $2" >> stages.log`+"\n")

	r := NewRunner(WithMPIExec(filepath.Join(exeDir, "fake-mpirun")))
	err := r.Run(context.Background(), ports.RunSpec{CaseDir: caseDir, NumProcs: 4, ExeDir: exeDir})
	require.NoError(t, err)

	log, err := os.ReadFile(filepath.Join(caseDir, "stages.log"))
	require.NoError(t, err)
	assert.Equal(t, "prep 4 --partmesh\nprep 4 --prepall\nmpi -np 4\n", string(log))
}

func TestRunnerContextCancellation(t *testing.T) {
	exeDir := t.TempDir()
	writeScript(t, exeDir, "adcirc", "sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner()
	err := r.Run(ctx, ports.RunSpec{CaseDir: t.TempDir(), NumProcs: 1, ExeDir: exeDir})
	require.Error(t, err, "a canceled context must abort the solver")
}
