package runtime

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory PhaseStore for orchestrator tests.
type memStore struct {
	mu sync.Mutex
	m  map[string]domain.PhaseState
}

func newMemStore() *memStore { return &memStore{m: make(map[string]domain.PhaseState)} }

func (s *memStore) Save(_ context.Context, key string, state *domain.PhaseState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = *state
	return nil
}

func (s *memStore) Load(_ context.Context, key string) (*domain.PhaseState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.m[key]
	if !ok {
		return nil, domain.ErrPhaseStateNotFound
	}
	out := state
	return &out, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys, nil
}

func TestMemStoreContract(t *testing.T) {
	ports.RunPhaseStoreContract(t, newMemStore())
}

// stubSolver fakes the external circulation model: for the fulldomain it
// writes the region output and the global outputs; for the subdomain it
// reads the persisted node map and reproduces the fulldomain solution
// exactly, so a healthy pipeline ends with zero discrepancy.
type stubSolver struct {
	fullDir string
	calls   int
	silent  bool
}

func (s *stubSolver) Run(_ context.Context, spec ports.RunSpec) error {
	s.calls++
	if s.silent {
		return nil
	}

	times := []float64{0, 1}
	value := func(node, step int) float64 { return float64(node) + 0.5*float64(step) }

	write := func(path string, numNodes int, v func(node, step int) float64) error {
		series := &fort.Series{Name: "stub output", NumNodes: numNodes, Comp: 1, Times: times}
		series.Data = make([][]float64, numNodes)
		for i := 0; i < numNodes; i++ {
			row := make([]float64, len(times))
			for step := range times {
				row[step] = v(i+1, step)
			}
			series.Data[i] = row
		}
		return fort.WriteSeries(path, series)
	}

	if spec.CaseDir == s.fullDir {
		if err := write(spec.CaseDir+"/"+fort.RegionElevation, 25, value); err != nil {
			return err
		}
		if err := write(spec.CaseDir+"/"+fort.ElevationTS, 25, value); err != nil {
			return err
		}
		return fort.WriteExtrema(spec.CaseDir+"/"+fort.MaxElevation, "stub extrema", nodeValues(25, nil))
	}

	nodeMap, err := fort.ReadNodeMap(spec.CaseDir + "/" + fort.NodeMapFile)
	if err != nil {
		return err
	}
	if err := write(spec.CaseDir+"/"+fort.ElevationTS, len(nodeMap), func(node, step int) float64 {
		return value(nodeMap[node], step)
	}); err != nil {
		return err
	}
	return fort.WriteExtrema(spec.CaseDir+"/"+fort.MaxElevation, "stub extrema", nodeValues(len(nodeMap), nodeMap))
}

func nodeValues(n int, remap map[int]int) []float64 {
	out := make([]float64, n)
	for i := range out {
		id := i + 1
		if remap != nil {
			id = remap[id]
		}
		out[i] = float64(id)
	}
	return out
}

// collectingHooks records event types in arrival order.
type collectingHooks struct {
	mu     sync.Mutex
	events []domain.EventType
}

func (c *collectingHooks) record(t domain.EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, t)
}

func (c *collectingHooks) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseStart:   func(_ context.Context, e *domain.PhaseEvent) { c.record(e.Type) },
		OnPhaseSkip:    func(_ context.Context, e *domain.PhaseEvent) { c.record(e.Type) },
		OnPhaseDone:    func(_ context.Context, e *domain.PhaseEvent) { c.record(e.Type) },
		OnSolverStart:  func(_ context.Context, e *domain.SolverEvent) { c.record(e.Type) },
		OnSolverReturn: func(_ context.Context, e *domain.SolverEvent) { c.record(e.Type) },
		OnPipelineHalt: func(_ context.Context, e *domain.PhaseEvent) { c.record(e.Type) },
	}
}

func newTestOrchestrator(t *testing.T, store ports.PhaseStore, opts ...OrchestratorOption) (*Orchestrator, *stubSolver) {
	t.Helper()
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	solver := &stubSolver{fullDir: full.Path}

	shape := testShape()
	cfg := Config{
		NumProcs: 1,
		H0:       0,
		TSVars:   []string{fort.ElevationTS},
		NTSVars:  []string{fort.MaxElevation},
		Shape:    &shape,
	}
	all := append([]OrchestratorOption{WithSolver(solver), WithPhaseStore(store)}, opts...)
	return NewOrchestrator(full, sub, cfg, all...), solver
}

func TestOrchestratorEndToEnd(t *testing.T) {
	store := newMemStore()
	hooks := &collectingHooks{}
	orch, solver := newTestOrchestrator(t, store, WithLifecycleHooks(hooks.hooks()))

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	// Both solver runs happened and the nested solution matches the
	// parent solution exactly.
	assert.Equal(t, 2, solver.calls)
	maxErr, _ := result.TsData[fort.ElevationTS].MaxAbs()
	assert.InDelta(t, 0.0, maxErr, 1e-9)
	maxErr, _ = result.NtsData[fort.MaxElevation].MaxAbs()
	assert.InDelta(t, 0.0, maxErr, 1e-9)

	state, err := orch.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompared, state.Phase)
	assert.Empty(t, state.Halted)
	assert.NotEmpty(t, state.RunID)

	assert.Contains(t, hooks.events, domain.EventSolverStart)
	assert.Contains(t, hooks.events, domain.EventSolverReturn)
	assert.NotContains(t, hooks.events, domain.EventPipelineHalt)
}

func TestOrchestratorSkipsCompletedPhases(t *testing.T) {
	store := newMemStore()
	orch, solver := newTestOrchestrator(t, store)

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, solver.calls)

	// A second invocation finds every artifact in place: no solver run,
	// same comparison result.
	hooks := &collectingHooks{}
	orch.hooks = hooks.hooks()
	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, solver.calls, "expensive phases must be skipped on re-run")
	assert.Contains(t, hooks.events, domain.EventPhaseSkip)

	maxErr, _ := result.TsData[fort.ElevationTS].MaxAbs()
	assert.InDelta(t, 0.0, maxErr, 1e-9)
}

func TestOrchestratorHaltsWithoutGeometry(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	store := newMemStore()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	hooks := &collectingHooks{}

	orch := NewOrchestrator(full, sub, Config{},
		WithSolver(&stubSolver{fullDir: full.Path}),
		WithPhaseStore(store),
		WithMetrics(metrics),
		WithLifecycleHooks(hooks.hooks()))

	_, err := orch.Run(context.Background())
	var mie *domain.MissingInputError
	require.ErrorAs(t, err, &mie)

	state, err := orch.Status(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, state.Halted, "halt reason must be persisted")
	assert.Equal(t, domain.PhaseNotStarted, state.Phase)

	assert.Contains(t, hooks.events, domain.EventPipelineHalt)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PipelineHalts), 1e-9)
}

func TestOrchestratorHaltsWhenSolverProducesNoOutput(t *testing.T) {
	store := newMemStore()
	orch, solver := newTestOrchestrator(t, store)
	solver.silent = true

	_, err := orch.Run(context.Background())
	var mie *domain.MissingInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, 1, solver.calls, "pipeline stops at the fulldomain run")

	state, err := orch.Status(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, state.Halted)
	assert.Equal(t, domain.PhaseControlGenerated, state.Phase,
		"setup and control generation completed before the halt")
}

func TestOrchestratorHaltsWhenForcingInputVanishes(t *testing.T) {
	store := newMemStore()
	orch, solver := newTestOrchestrator(t, store)
	// External cleanup racing the pipeline: the forcing file disappears
	// between extraction and the subdomain run.
	orch.hooks = domain.LifecycleHooks{
		OnPhaseDone: func(_ context.Context, e *domain.PhaseEvent) {
			if e.Phase == domain.PhaseBoundaryExtracted {
				require.NoError(t, os.Remove(filepath.Join(orch.sub.Path, fort.BCFile)))
			}
		},
	}

	_, err := orch.Run(context.Background())
	var mie *domain.MissingInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, fort.BCFile, mie.Artifact)
	assert.Equal(t, 1, solver.calls, "the subdomain run must not start without its forcing input")

	state, err := orch.Status(context.Background())
	require.NoError(t, err)
	assert.Contains(t, state.Halted, fort.BCFile)
	assert.Equal(t, domain.PhaseBoundaryExtracted, state.Phase)
}

// blockedLocker always reports the case as held elsewhere.
type blockedLocker struct{}

func (blockedLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return nil, domain.ErrCaseLocked
}

func TestOrchestratorRespectsCaseLock(t *testing.T) {
	orch, solver := newTestOrchestrator(t, newMemStore(), WithLocker(blockedLocker{}))

	_, err := orch.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrCaseLocked)
	assert.Zero(t, solver.calls, "a locked case must not run anything")
}

func TestOrchestratorStatusWithoutStore(t *testing.T) {
	full := NewFulldomain(writeFulldomainCase(t, nil), "", nil)
	sub := NewSubdomain(t.TempDir(), "", nil)
	orch := NewOrchestrator(full, sub, Config{})

	state, err := orch.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseNotStarted, state.Phase)
	assert.Equal(t, sub.Path, state.SubdomainPath)
}
