package ui

import (
	"time"

	"udonsharp/internal/buildpipeline"
)

type rowState uint8

const (
	rowQueued rowState = iota
	rowRunning
	rowCached
	rowWritten
	rowFailed
)

// settled states never go back to running; only a later failure replaces
// them.
func (s rowState) settled() bool { return s >= rowCached }

// scriptRow is the progress of one .uas script.
type scriptRow struct {
	path    string
	state   rowState
	stage   buildpipeline.Stage
	elapsed time.Duration
	err     string
}

// stageOrder is the path a script takes through the pipeline. A cache hit
// skips from StageCache straight to the write.
var stageOrder = []buildpipeline.Stage{
	buildpipeline.StageLoad,
	buildpipeline.StageCache,
	buildpipeline.StageParse,
	buildpipeline.StageCompile,
	buildpipeline.StageAssemble,
	buildpipeline.StageWrite,
}

func stageFraction(stage buildpipeline.Stage) float64 {
	for i, s := range stageOrder {
		if s == stage {
			return float64(i) / float64(len(stageOrder))
		}
	}
	return 0
}

func (r *scriptRow) fraction() float64 {
	switch {
	case r.state.settled():
		return 1
	case r.state == rowRunning:
		return stageFraction(r.stage)
	}
	return 0
}

// apply folds ev into the row and reports whether anything changed.
func (r *scriptRow) apply(ev buildpipeline.Event) bool {
	if r.state.settled() && ev.Status != buildpipeline.StatusError {
		return false
	}
	switch ev.Status {
	case buildpipeline.StatusQueued:
		r.state, r.stage = rowQueued, ev.Stage
	case buildpipeline.StatusWorking:
		r.state, r.stage = rowRunning, ev.Stage
	case buildpipeline.StatusCached:
		r.state, r.stage, r.elapsed = rowCached, ev.Stage, ev.Elapsed
	case buildpipeline.StatusDone:
		// driver phases end with the next phase's start; only the write
		// finishes a script
		if ev.Stage != buildpipeline.StageWrite {
			return false
		}
		r.state, r.stage, r.elapsed = rowWritten, ev.Stage, ev.Elapsed
	case buildpipeline.StatusError:
		r.state, r.stage, r.elapsed = rowFailed, ev.Stage, ev.Elapsed
		if ev.Err != nil {
			r.err = ev.Err.Error()
		}
	default:
		return false
	}
	return true
}

func (r *scriptRow) label() string {
	switch r.state {
	case rowQueued:
		return "queued"
	case rowCached:
		return "cached"
	case rowWritten:
		return "written"
	case rowFailed:
		return "failed"
	}
	switch r.stage {
	case buildpipeline.StageLoad:
		return "loading"
	case buildpipeline.StageCache:
		return "lookup"
	case buildpipeline.StageParse:
		return "parsing"
	case buildpipeline.StageCompile:
		return "compiling"
	case buildpipeline.StageAssemble:
		return "assembling"
	case buildpipeline.StageWrite:
		return "writing"
	}
	return "running"
}

// tally counts settled rows the way the compile summary line does.
type tally struct {
	compiled, cached, failed int
}

func (t tally) settled() int { return t.compiled + t.cached + t.failed }

func countRows(rows []scriptRow) tally {
	var t tally
	for i := range rows {
		switch rows[i].state {
		case rowWritten:
			t.compiled++
		case rowCached:
			t.cached++
		case rowFailed:
			t.failed++
		}
	}
	return t
}
