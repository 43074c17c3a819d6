package buildpipeline

import "time"

// Stage is a step a script goes through; driver phases map onto the first
// five, StageWrite is the artifact write done here.
type Stage string

const (
	StageLoad     Stage = "load"
	StageParse    Stage = "parse"
	StageCompile  Stage = "compile"
	StageAssemble Stage = "assemble"
	StageCache    Stage = "cache"
	StageWrite    Stage = "write"
)

// Status is the state of a script within its current stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusCached marks a unit served from the disk cache.
	StatusCached Status = "cached"
	StatusError  Status = "error"
)

// Event reports progress for one script, or for the whole run when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Units run in parallel, so sinks
// must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings sums stage durations across units, remembering the order in
// which stages first reported.
type Timings struct {
	order  []Stage
	stages map[Stage]time.Duration
}

// Add accumulates a duration for the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	if _, seen := t.stages[stage]; !seen {
		t.order = append(t.order, stage)
	}
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Stages lists the recorded stages in first-seen order.
func (t Timings) Stages() []Stage {
	return append([]Stage(nil), t.order...)
}

// Clone returns a copy that does not share storage with t.
func (t Timings) Clone() Timings {
	var out Timings
	for _, stage := range t.order {
		out.Add(stage, t.stages[stage])
	}
	return out
}
