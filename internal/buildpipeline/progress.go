package buildpipeline

import (
	"sync"
	"time"

	"udonsharp/internal/driver"
)

func emit(sink ProgressSink, ev Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(ev)
}

func emitQueued(sink ProgressSink, files []string) {
	for _, file := range files {
		emit(sink, Event{File: file, Stage: StageLoad, Status: StatusQueued})
	}
}

func emitPipeline(sink ProgressSink, stage Stage, status Status, err error) {
	emit(sink, Event{Stage: stage, Status: status, Err: err})
}

// phaseTimings sums driver phases across units.
type phaseTimings struct {
	mu sync.Mutex
	t  Timings
}

func (p *phaseTimings) add(stage Stage, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.t.Add(stage, d)
}

func (p *phaseTimings) snapshot() Timings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t.Clone()
}

var phaseStages = map[driver.Phase]Stage{
	driver.PhaseLoad:     StageLoad,
	driver.PhaseParse:    StageParse,
	driver.PhaseCompile:  StageCompile,
	driver.PhaseAssemble: StageAssemble,
	driver.PhaseCache:    StageCache,
}

// phaseObserver turns driver phase events into progress events, feeding
// timings along the way. next, when set, still sees every phase event.
func phaseObserver(sink ProgressSink, timings *phaseTimings, next driver.PhaseObserver) driver.PhaseObserver {
	return func(ev driver.PhaseEvent) {
		if next != nil {
			next(ev)
		}
		stage, ok := phaseStages[ev.Phase]
		if !ok {
			return
		}
		switch ev.Status {
		case driver.PhaseStart:
			emit(sink, Event{File: ev.Path, Stage: stage, Status: StatusWorking})
		case driver.PhaseEnd:
			timings.add(stage, ev.Elapsed)
		case driver.PhaseFailed:
			timings.add(stage, ev.Elapsed)
			emit(sink, Event{File: ev.Path, Stage: stage, Status: StatusError, Elapsed: ev.Elapsed})
		}
	}
}
