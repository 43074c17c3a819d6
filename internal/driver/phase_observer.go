package driver

import "time"

// Phase names a step of the per-unit pipeline.
type Phase string

const (
	PhaseLoad     Phase = "load"
	PhaseParse    Phase = "parse"
	PhaseCompile  Phase = "compile"
	PhaseAssemble Phase = "assemble"
	PhaseCache    Phase = "cache"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a compilation phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
	// PhaseFailed ends a phase that produced errors; later phases are skipped.
	PhaseFailed
)

// PhaseEvent describes a phase boundary of one unit.
type PhaseEvent struct {
	Path    string
	Phase   Phase
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events. Units compile in parallel, so an
// observer must be safe for concurrent use.
type PhaseObserver func(PhaseEvent)

func (o PhaseObserver) emit(path string, phase Phase, status PhaseStatus, elapsed time.Duration) {
	if o == nil {
		return
	}
	o(PhaseEvent{Path: path, Phase: phase, Status: status, Elapsed: elapsed})
}
