/*
Package ports defines the driven ports (interfaces) for the nestor
orchestration core.

These interfaces decouple the pipeline from external implementations,
allowing it to work with different solver launchers, phase-state backends and
locking strategies.

# Key Interfaces

  - Solver: launches the external parallel circulation solver for a case.
  - PhaseStore: persists and loads per-case PhaseState records.
  - CaseLocker: enforces single-writer access to a case directory pair.
*/
package ports
