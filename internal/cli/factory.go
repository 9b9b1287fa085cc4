package cli

import (
	"fmt"
	"log/slog"

	fileadapter "github.com/coastalkit/nestor/internal/adapters/file"
	"github.com/coastalkit/nestor/internal/adapters/process"
	redisadapter "github.com/coastalkit/nestor/internal/adapters/redis"
	"github.com/coastalkit/nestor/internal/runtime"
	"github.com/coastalkit/nestor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// BuildStore constructs the phase store selected by the config. The returned
// closer releases backend connections and is a no-op for the file store.
func BuildStore(cfg *JobConfig) (ports.PhaseStore, func() error, error) {
	switch cfg.Store.Backend {
	case "", "file":
		return fileadapter.New(cfg.Store.Path), func() error { return nil }, nil
	case "redis":
		store := redisadapter.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// BuildLocker constructs the case locker matching the store backend, so that
// state and locks live in the same place.
func BuildLocker(cfg *JobConfig) (ports.CaseLocker, func() error, error) {
	switch cfg.Store.Backend {
	case "", "file":
		return fileadapter.NewLocker(cfg.Store.Path), func() error { return nil }, nil
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		return redisadapter.NewLocker(client, "nestor:"), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// BuildOrchestrator wires a complete pipeline from a job config: the two
// case controllers, the process solver, persistence and locking. The
// returned closer must run after the pipeline finishes.
func BuildOrchestrator(cfg *JobConfig, logger *slog.Logger, opts ...runtime.OrchestratorOption) (*runtime.Orchestrator, func() error, error) {
	shape, err := cfg.ExtractionShape()
	if err != nil {
		return nil, nil, err
	}
	lockTTL, err := cfg.LockTTL()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := BuildStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	locker, closeLocker, err := BuildLocker(cfg)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	closer := func() error {
		errStore := closeStore()
		if err := closeLocker(); err != nil {
			return err
		}
		return errStore
	}

	full := runtime.NewFulldomain(cfg.FulldomainDir, cfg.ExeDir, logger)
	sub := runtime.NewSubdomain(cfg.SubdomainDir, cfg.ExeDir, logger)

	runCfg := runtime.Config{
		NumProcs: cfg.NumProcs,
		H0:       cfg.H0,
		NOutGS:   cfg.NOutGS,
		NSpoolGS: cfg.NSpoolGS,
		TSVars:   cfg.TimeseriesVars,
		NTSVars:  cfg.ExtremaVars,
		Shape:    shape,
		LockTTL:  lockTTL,
	}

	all := append([]runtime.OrchestratorOption{
		runtime.WithSolver(process.NewRunner(process.WithLogger(logger))),
		runtime.WithPhaseStore(store),
		runtime.WithLocker(locker),
		runtime.WithLogger(logger),
	}, opts...)

	return runtime.NewOrchestrator(full, sub, runCfg, all...), closer, nil
}
