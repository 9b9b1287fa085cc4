package domain

import "time"

// Phase identifies a completed stage of the two-domain workflow. Phases are
// strictly ordered; the orchestrator never runs a step whose predecessor
// phase has not been reached.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseGeometryReady
	PhaseSetupDone
	PhaseControlGenerated
	PhaseFulldomainRan
	PhaseBoundaryExtracted
	PhaseSubdomainRan
	PhaseCompared
)

var phaseNames = map[Phase]string{
	PhaseNotStarted:        "not_started",
	PhaseGeometryReady:     "geometry_ready",
	PhaseSetupDone:         "setup_done",
	PhaseControlGenerated:  "control_generated",
	PhaseFulldomainRan:     "fulldomain_ran",
	PhaseBoundaryExtracted: "boundary_extracted",
	PhaseSubdomainRan:      "subdomain_ran",
	PhaseCompared:          "compared",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePhase converts a stored phase name back to its Phase. Unknown names
// map to PhaseNotStarted so that a corrupted record degrades to a full
// re-verification rather than a wrong skip.
func ParsePhase(name string) Phase {
	for p, n := range phaseNames {
		if n == name {
			return p
		}
	}
	return PhaseNotStarted
}

// MarshalText implements encoding.TextMarshaler for JSON persistence.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	*p = ParsePhase(string(text))
	return nil
}

// PhaseState is the persisted record of how far a case pair has progressed.
// File-existence checks remain the verification of record: a persisted phase
// is only trusted when its check predicate still holds, so a wiped case
// directory falls back to re-running from the first incomplete step.
type PhaseState struct {
	RunID          string    `json:"run_id"`
	FulldomainPath string    `json:"fulldomain_path"`
	SubdomainPath  string    `json:"subdomain_path"`
	Phase          Phase     `json:"phase"`
	UpdatedAt      time.Time `json:"updated_at"`
	// Halted carries the precondition message when the pipeline stopped
	// before completion, e.g. a missing boundary-condition file.
	Halted string `json:"halted,omitempty"`
}

// Advance moves the record to p if p is further along than the current
// phase. Regressions are ignored; resumption decides those from the checks.
func (s *PhaseState) Advance(p Phase, at time.Time) {
	if p > s.Phase {
		s.Phase = p
		s.UpdatedAt = at
		s.Halted = ""
	}
}
