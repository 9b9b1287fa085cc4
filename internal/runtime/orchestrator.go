package runtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/coastalkit/nestor/internal/fort"
	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
	"github.com/google/uuid"
)

// Config carries the per-pipeline parameters.
type Config struct {
	// NumProcs is the parallel width of solver runs. Must not exceed the
	// scheduler allocation of the enclosing job.
	NumProcs int
	// H0 is the minimum wet depth for boundary forcing extraction.
	H0 float64
	// NOutGS / NSpoolGS control region-limited output in the fulldomain
	// control file.
	NOutGS   int
	NSpoolGS int
	// TSVars and NTSVars are the output variables compared at the end.
	TSVars  []string
	NTSVars []string
	// Shape, when set, is generated in step 1 if no shape artifact exists.
	Shape *domain.Shape
	// LockTTL bounds how long a crashed run can hold the case lock.
	LockTTL time.Duration
}

func (c *Config) defaults() {
	if c.NOutGS == 0 {
		c.NOutGS = 1
	}
	if c.NSpoolGS == 0 {
		c.NSpoolGS = 1
	}
	if c.NumProcs == 0 {
		c.NumProcs = 1
	}
	if len(c.TSVars) == 0 {
		c.TSVars = []string{fort.ElevationTS}
	}
	if len(c.NTSVars) == 0 {
		c.NTSVars = []string{fort.MaxElevation}
	}
	if c.LockTTL == 0 {
		c.LockTTL = 30 * time.Minute
	}
}

// Orchestrator sequences the two-domain workflow as an explicit finite
// state machine. Completed phases are persisted through the PhaseStore;
// file-existence checks verify each persisted phase before it is trusted,
// so resumption after interruption is principled rather than inferred.
type Orchestrator struct {
	full   *Fulldomain
	sub    *Subdomain
	cfg    Config
	solver ports.Solver
	store  ports.PhaseStore
	locker ports.CaseLocker
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	metric *Metrics
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSolver injects the external solver port.
func WithSolver(s ports.Solver) OrchestratorOption {
	return func(o *Orchestrator) { o.solver = s }
}

// WithPhaseStore injects the phase persistence backend.
func WithPhaseStore(s ports.PhaseStore) OrchestratorOption {
	return func(o *Orchestrator) { o.store = s }
}

// WithLocker injects the single-writer case lock.
func WithLocker(l ports.CaseLocker) OrchestratorOption {
	return func(o *Orchestrator) { o.locker = l }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) OrchestratorOption {
	return func(o *Orchestrator) { o.hooks = h }
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metric = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator wires an orchestrator over a prepared domain pair.
func NewOrchestrator(full *Fulldomain, sub *Subdomain, cfg Config, opts ...OrchestratorOption) *Orchestrator {
	cfg.defaults()
	o := &Orchestrator{full: full, sub: sub, cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	sub.SetFulldomain(full)
	return o
}

// stateKey identifies the case pair in the phase store.
func (o *Orchestrator) stateKey() string { return o.sub.Path }

// Status returns the persisted phase record, or a fresh one when none
// exists.
func (o *Orchestrator) Status(ctx context.Context) (*domain.PhaseState, error) {
	if o.store == nil {
		return o.newState(), nil
	}
	state, err := o.store.Load(ctx, o.stateKey())
	if err == domain.ErrPhaseStateNotFound {
		return o.newState(), nil
	}
	return state, err
}

func (o *Orchestrator) newState() *domain.PhaseState {
	return &domain.PhaseState{
		RunID:          uuid.NewString(),
		FulldomainPath: o.full.Path,
		SubdomainPath:  o.sub.Path,
		Phase:          domain.PhaseNotStarted,
		UpdatedAt:      time.Now().UTC(),
	}
}

func (o *Orchestrator) save(ctx context.Context, state *domain.PhaseState) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(ctx, o.stateKey(), state); err != nil {
		o.logger.Warn("failed to persist phase state", "error", err)
	}
}

func (o *Orchestrator) phaseEvent(t domain.EventType, state *domain.PhaseState, phase domain.Phase, dir, reason string) *domain.PhaseEvent {
	return &domain.PhaseEvent{
		Type:      t,
		RunID:     state.RunID,
		Phase:     phase,
		CaseDir:   dir,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
	}
}

func (o *Orchestrator) skip(ctx context.Context, state *domain.PhaseState, phase domain.Phase, dir, reason string) {
	o.logger.Info("phase satisfied, skipping", "phase", phase.String(), "reason", reason)
	o.metric.phaseSkip(phase.String())
	if o.hooks.OnPhaseSkip != nil {
		o.hooks.OnPhaseSkip(ctx, o.phaseEvent(domain.EventPhaseSkip, state, phase, dir, reason))
	}
	state.Advance(phase, time.Now().UTC())
	o.save(ctx, state)
}

func (o *Orchestrator) begin(ctx context.Context, state *domain.PhaseState, phase domain.Phase, dir string) {
	o.logger.Info("phase starting", "phase", phase.String())
	o.metric.phaseRun(phase.String())
	if o.hooks.OnPhaseStart != nil {
		o.hooks.OnPhaseStart(ctx, o.phaseEvent(domain.EventPhaseStart, state, phase, dir, ""))
	}
}

func (o *Orchestrator) done(ctx context.Context, state *domain.PhaseState, phase domain.Phase, dir string) {
	o.logger.Info("phase done", "phase", phase.String())
	if o.hooks.OnPhaseDone != nil {
		o.hooks.OnPhaseDone(ctx, o.phaseEvent(domain.EventPhaseDone, state, phase, dir, ""))
	}
	state.Advance(phase, time.Now().UTC())
	o.save(ctx, state)
}

// halt records a user-visible precondition failure and returns the error
// the caller should surface. Halts are decisions, not tool failures: the
// operator re-runs the missing phase and invokes the pipeline again.
func (o *Orchestrator) halt(ctx context.Context, state *domain.PhaseState, phase domain.Phase, dir string, err error) error {
	o.logger.Error("pipeline halted on unmet precondition", "phase", phase.String(), "error", err)
	o.metric.halt()
	state.Halted = err.Error()
	state.UpdatedAt = time.Now().UTC()
	o.save(ctx, state)
	if o.hooks.OnPipelineHalt != nil {
		o.hooks.OnPipelineHalt(ctx, o.phaseEvent(domain.EventPipelineHalt, state, phase, dir, err.Error()))
	}
	return err
}

// runSolver executes one external run with hooks and timing.
func (o *Orchestrator) runSolver(ctx context.Context, c *Case, label string, state *domain.PhaseState) error {
	ev := &domain.SolverEvent{
		Type:      domain.EventSolverStart,
		RunID:     state.RunID,
		CaseDir:   c.Path,
		NumProcs:  o.cfg.NumProcs,
		Timestamp: time.Now().UTC(),
	}
	if o.hooks.OnSolverStart != nil {
		o.hooks.OnSolverStart(ctx, ev)
	}

	start := time.Now()
	err := c.Run(ctx, o.solver, o.cfg.NumProcs)
	elapsed := time.Since(start)
	o.metric.solverSeconds(label, elapsed.Seconds())

	if o.hooks.OnSolverReturn != nil {
		ret := *ev
		ret.Type = domain.EventSolverReturn
		ret.Duration = elapsed
		ret.Err = err
		ret.Timestamp = time.Now().UTC()
		o.hooks.OnSolverReturn(ctx, &ret)
	}
	return err
}

// Run executes the full pipeline:
//
//	(1) ensure extraction-region geometry
//	(2) subdomain setup
//	(3) derive fulldomain control
//	(4) fulldomain solver run, unless its output already exists
//	(5) boundary-condition extraction
//	(6) subdomain solver run, halting if the forcing input is missing
//	(7) node correspondence + comparison
//
// Tool failures terminate immediately and are never retried; an expensive
// solver re-run without operator intervention would mask real failures.
func (o *Orchestrator) Run(ctx context.Context) (*domain.ComparisonResult, error) {
	if o.locker != nil {
		unlock, err := o.locker.Lock(ctx, o.stateKey(), o.cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				o.logger.Warn("failed to release case lock", "error", err)
			}
		}()
	}

	state, err := o.Status(ctx)
	if err != nil {
		return nil, err
	}
	o.logger.Info("pipeline starting",
		"run_id", state.RunID,
		"fulldomain", o.full.Path,
		"subdomain", o.sub.Path,
		"resumed_phase", state.Phase.String())

	if err := o.full.Update(); err != nil {
		return nil, err
	}
	if err := o.sub.Update(); err != nil {
		return nil, err
	}

	// Step 1: extraction-region geometry.
	if fort.ShapeExists(o.sub.Path) {
		o.skip(ctx, state, domain.PhaseGeometryReady, o.sub.Path, "shape artifact exists")
	} else if o.cfg.Shape != nil {
		o.begin(ctx, state, domain.PhaseGeometryReady, o.sub.Path)
		if err := o.sub.ensureShape(*o.cfg.Shape); err != nil {
			return nil, err
		}
		o.done(ctx, state, domain.PhaseGeometryReady, o.sub.Path)
	} else {
		return nil, o.halt(ctx, state, domain.PhaseGeometryReady, o.sub.Path, &domain.MissingInputError{
			Dir:      o.sub.Path,
			Artifact: fort.ShapeEllipse,
			Hint:     "no extraction-region geometry on disk and none configured",
		})
	}

	// Step 2: subdomain setup.
	if state.Phase >= domain.PhaseSetupDone &&
		o.sub.HasArtifact(fort.GridFile) && o.sub.HasArtifact(fort.NodeMapFile) {
		o.skip(ctx, state, domain.PhaseSetupDone, o.sub.Path, "subdomain grid and node map exist")
	} else {
		o.begin(ctx, state, domain.PhaseSetupDone, o.sub.Path)
		if err := o.sub.Setup(); err != nil {
			return nil, err
		}
		o.done(ctx, state, domain.PhaseSetupDone, o.sub.Path)
	}

	// Step 3: fulldomain control file.
	if state.Phase >= domain.PhaseControlGenerated && o.full.HasArtifact(fort.SubControlFile) {
		o.skip(ctx, state, domain.PhaseControlGenerated, o.full.Path, "fulldomain control file exists")
	} else {
		o.begin(ctx, state, domain.PhaseControlGenerated, o.full.Path)
		if err := o.sub.GenFull(o.cfg.NOutGS, o.cfg.NSpoolGS); err != nil {
			return nil, err
		}
		o.done(ctx, state, domain.PhaseControlGenerated, o.full.Path)
	}

	// Step 4: fulldomain run, the expensive step skipping exists for.
	if err := o.full.Update(); err != nil {
		return nil, err
	}
	if o.full.CheckFulldomain() {
		o.skip(ctx, state, domain.PhaseFulldomainRan, o.full.Path, "fulldomain output already exists")
	} else {
		o.begin(ctx, state, domain.PhaseFulldomainRan, o.full.Path)
		if err := o.runSolver(ctx, o.full.Case, "fulldomain", state); err != nil {
			return nil, err
		}
		if !o.full.CheckFulldomain() {
			return nil, o.halt(ctx, state, domain.PhaseFulldomainRan, o.full.Path, &domain.MissingInputError{
				Dir:      o.full.Path,
				Artifact: fort.RegionElevation,
				Hint:     "solver returned but region output was not produced",
			})
		}
		o.done(ctx, state, domain.PhaseFulldomainRan, o.full.Path)
	}

	// Step 5: boundary-condition extraction.
	if err := o.sub.Update(); err != nil {
		return nil, err
	}
	if o.sub.Check() {
		o.skip(ctx, state, domain.PhaseBoundaryExtracted, o.sub.Path, "boundary-condition file exists")
	} else {
		o.begin(ctx, state, domain.PhaseBoundaryExtracted, o.sub.Path)
		if _, err := o.sub.GenBCs(o.cfg.H0); err != nil {
			return nil, err
		}
		o.done(ctx, state, domain.PhaseBoundaryExtracted, o.sub.Path)
	}

	// Step 6: subdomain run, gated on the forcing input actually existing.
	// A false check here is surfaced as a user-visible halt, never glossed
	// over: the operator needs to know which phase to re-run.
	if !o.sub.Check() {
		return nil, o.halt(ctx, state, domain.PhaseSubdomainRan, o.sub.Path, &domain.MissingInputError{
			Dir:      o.sub.Path,
			Artifact: fort.BCFile,
			Hint:     "boundary-condition input file does not exist; re-run the extraction phase",
		})
	}
	if state.Phase >= domain.PhaseSubdomainRan && o.sub.HasArtifact(fort.ElevationTS) {
		o.skip(ctx, state, domain.PhaseSubdomainRan, o.sub.Path, "subdomain output already exists")
	} else {
		o.begin(ctx, state, domain.PhaseSubdomainRan, o.sub.Path)
		if err := o.runSolver(ctx, o.sub.Case, "subdomain", state); err != nil {
			return nil, err
		}
		o.done(ctx, state, domain.PhaseSubdomainRan, o.sub.Path)
	}

	// Step 7: correspondence and comparison.
	o.begin(ctx, state, domain.PhaseCompared, o.sub.Path)
	if _, err := o.sub.UpdateSub2FullMap(); err != nil {
		return nil, err
	}
	result, err := o.sub.CompareToFulldomain(ctx, o.cfg.TSVars, o.cfg.NTSVars)
	if err != nil {
		return nil, err
	}
	o.done(ctx, state, domain.PhaseCompared, o.sub.Path)

	o.logger.Info("pipeline complete", "run_id", state.RunID)
	return result, nil
}
