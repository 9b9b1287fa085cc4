package nestor

import (
	"context"
	"log/slog"
	"time"

	"github.com/coastalkit/nestor/internal/adapters/process"
	"github.com/coastalkit/nestor/internal/runtime"
	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline is the high-level entry point for the nestor library. It wraps
// the internal orchestrator and exposes the two-domain workflow as a single
// object: configure it against a fulldomain and a subdomain case directory,
// then Run.
type Pipeline struct {
	full *runtime.Fulldomain
	sub  *runtime.Subdomain
	orch *runtime.Orchestrator

	cfg      runtime.Config
	solver   ports.Solver
	store    ports.PhaseStore
	locker   ports.CaseLocker
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	registry prometheus.Registerer
	exeDir   string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSolver injects a custom solver, bypassing the default process runner.
func WithSolver(s ports.Solver) Option {
	return func(p *Pipeline) { p.solver = s }
}

// WithPhaseStore enables phase persistence.
func WithPhaseStore(s ports.PhaseStore) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithCaseLocker enables single-writer locking across pipeline instances.
func WithCaseLocker(l ports.CaseLocker) Option {
	return func(p *Pipeline) { p.locker = l }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(p *Pipeline) { p.hooks = h }
}

// WithLogger sets a structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics registers pipeline metrics with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Pipeline) { p.registry = reg }
}

// WithExeDir sets the directory holding the solver executables.
func WithExeDir(dir string) Option {
	return func(p *Pipeline) { p.exeDir = dir }
}

// WithNumProcs sets the parallel width of solver runs.
func WithNumProcs(n int) Option {
	return func(p *Pipeline) { p.cfg.NumProcs = n }
}

// WithWetThreshold sets the minimum depth for boundary nodes to receive
// forcing. Nodes with depth greater than or equal to h0 are wet.
func WithWetThreshold(h0 float64) Option {
	return func(p *Pipeline) { p.cfg.H0 = h0 }
}

// WithRegionOutput sets the region-limited output controls written into the
// fulldomain control file.
func WithRegionOutput(noutgs, nspoolgs int) Option {
	return func(p *Pipeline) {
		p.cfg.NOutGS = noutgs
		p.cfg.NSpoolGS = nspoolgs
	}
}

// WithEllipse configures the extraction region as an ellipse. It is used
// only when no shape artifact exists in the subdomain directory.
func WithEllipse(center domain.Point, semiX, semiY, scale float64) Option {
	return func(p *Pipeline) {
		s := domain.Ellipse(center, semiX, semiY, scale)
		p.cfg.Shape = &s
	}
}

// WithCircle configures the extraction region as a circle.
func WithCircle(center domain.Point, radius float64) Option {
	return func(p *Pipeline) {
		s := domain.Circle(center, radius)
		p.cfg.Shape = &s
	}
}

// WithOutputVariables selects which output variables the final comparison
// covers: time-varying series and non-time-varying extrema.
func WithOutputVariables(timeseries, extrema []string) Option {
	return func(p *Pipeline) {
		p.cfg.TSVars = timeseries
		p.cfg.NTSVars = extrema
	}
}

// WithLockTTL bounds how long a crashed run can hold the case lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(p *Pipeline) { p.cfg.LockTTL = ttl }
}

// New creates a Pipeline over the given case directories.
func New(fulldomainDir, subdomainDir string, opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.cfg.TSVars) == 0 {
		p.cfg.TSVars = []string{"fort.63"}
	}
	if len(p.cfg.NTSVars) == 0 {
		p.cfg.NTSVars = []string{"maxele.63"}
	}

	p.full = runtime.NewFulldomain(fulldomainDir, p.exeDir, p.logger)
	p.sub = runtime.NewSubdomain(subdomainDir, p.exeDir, p.logger)

	if p.solver == nil {
		solverOpts := []process.RunnerOption{}
		if p.logger != nil {
			solverOpts = append(solverOpts, process.WithLogger(p.logger))
		}
		p.solver = process.NewRunner(solverOpts...)
	}

	orchOpts := []runtime.OrchestratorOption{
		runtime.WithSolver(p.solver),
	}
	if p.store != nil {
		orchOpts = append(orchOpts, runtime.WithPhaseStore(p.store))
	}
	if p.locker != nil {
		orchOpts = append(orchOpts, runtime.WithLocker(p.locker))
	}
	if p.logger != nil {
		orchOpts = append(orchOpts, runtime.WithLogger(p.logger))
	}
	if p.registry != nil {
		orchOpts = append(orchOpts, runtime.WithMetrics(runtime.NewMetrics(p.registry)))
	}
	orchOpts = append(orchOpts, runtime.WithLifecycleHooks(p.hooks))

	p.orch = runtime.NewOrchestrator(p.full, p.sub, p.cfg, orchOpts...)
	return p
}

// Run executes the full workflow: geometry, subdomain setup, control
// derivation, the coarse run, boundary extraction, the refined run, and the
// final comparison. Completed phases are skipped.
func (p *Pipeline) Run(ctx context.Context) (*domain.ComparisonResult, error) {
	return p.orch.Run(ctx)
}

// Status reports how far the case pair has progressed.
func (p *Pipeline) Status(ctx context.Context) (*domain.PhaseState, error) {
	return p.orch.Status(ctx)
}

// Compare runs only the final step: node correspondence plus per-variable
// discrepancies between existing outputs. Both runs must have completed.
func (p *Pipeline) Compare(ctx context.Context, timeseries, extrema []string) (*domain.ComparisonResult, error) {
	if err := p.full.Update(); err != nil {
		return nil, err
	}
	if err := p.sub.Update(); err != nil {
		return nil, err
	}
	if len(timeseries) == 0 {
		timeseries = p.cfg.TSVars
	}
	if len(extrema) == 0 {
		extrema = p.cfg.NTSVars
	}
	return p.sub.CompareToFulldomain(ctx, timeseries, extrema)
}

// Subdomain exposes the subdomain controller for advanced use: shape
// generation, manual setup, boundary extraction.
func (p *Pipeline) Subdomain() *runtime.Subdomain { return p.sub }

// Fulldomain exposes the fulldomain controller.
func (p *Pipeline) Fulldomain() *runtime.Fulldomain { return p.full }
