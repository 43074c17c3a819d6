package main

import (
	"fmt"
	"io"
	"time"

	"udonsharp/internal/buildpipeline"
	"udonsharp/internal/driver"
)

var stageLabels = map[buildpipeline.Stage]string{
	buildpipeline.StageLoad:     "loaded",
	buildpipeline.StageCache:    "cache",
	buildpipeline.StageParse:    "parsed",
	buildpipeline.StageCompile:  "compiled",
	buildpipeline.StageAssemble: "assembled",
	buildpipeline.StageWrite:    "written",
}

// printStageTimings prints the summed duration of every stage that ran.
// Units run in parallel, so the sum can exceed wall time.
func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range timings.Stages() {
		label, ok := stageLabels[stage]
		if !ok {
			label = string(stage)
		}
		fmt.Fprintf(out, "%-9s %.1f ms\n", label, toMillis(timings.Duration(stage)))
	}
}

func printUnitTimings(out io.Writer, batch *driver.BatchResult) {
	if out == nil || batch == nil {
		return
	}
	for i := range batch.Units {
		u := &batch.Units[i]
		if u.Timing != nil {
			fmt.Fprint(out, u.Timing.Summary(u.Path))
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
