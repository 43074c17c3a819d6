package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"udonsharp/internal/asm"
	"udonsharp/internal/driver"
)

// CompileRequest configures one run of the pipeline.
type CompileRequest struct {
	// Paths are the files and directories given on the command line.
	Paths []string
	// Files overrides script discovery when set.
	Files []string
	// OutputDir receives one artifact per unit; nothing is written when empty.
	OutputDir string
	Emit      asm.Format
	Driver    driver.Options
	Progress  ProgressSink
}

// CompileResult captures compilation artefacts and stage timings.
type CompileResult struct {
	Batch *driver.BatchResult
	// Outputs lists written artifacts, indexed like Batch.Units; empty for
	// units that failed.
	Outputs []string
	Timings Timings
}

// ResolveFiles lists the scripts a request will compile.
func ResolveFiles(req *CompileRequest) ([]string, error) {
	if len(req.Files) > 0 {
		return req.Files, nil
	}
	if len(req.Paths) == 0 {
		return nil, fmt.Errorf("missing input path")
	}
	return driver.ListScripts(req.Paths...)
}

// Compile runs the driver over every script and writes the artifacts.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	files, err := ResolveFiles(req)
	if err != nil {
		return result, err
	}
	emitQueued(req.Progress, files)

	opts := req.Driver
	timings := &phaseTimings{}
	opts.PhaseObserver = phaseObserver(req.Progress, timings, opts.PhaseObserver)

	batch, err := driver.CompileFiles(ctx, files, opts)
	result.Batch = batch
	result.Timings = timings.snapshot()
	if err != nil {
		emitPipeline(req.Progress, StageCompile, StatusError, err)
		return result, err
	}

	result.Outputs = make([]string, len(batch.Units))
	for i := range batch.Units {
		u := &batch.Units[i]
		if !u.OK() {
			emit(req.Progress, Event{File: u.Path, Stage: StageCompile, Status: StatusError})
			continue
		}
		if req.OutputDir == "" {
			emit(req.Progress, Event{File: u.Path, Stage: StageWrite, Status: doneStatus(u)})
			continue
		}
		start := time.Now()
		emit(req.Progress, Event{File: u.Path, Stage: StageWrite, Status: StatusWorking})
		out, err := writeArtifact(req, u)
		elapsed := time.Since(start)
		result.Timings.Add(StageWrite, elapsed)
		if err != nil {
			emit(req.Progress, Event{File: u.Path, Stage: StageWrite, Status: StatusError, Err: err, Elapsed: elapsed})
			return result, err
		}
		result.Outputs[i] = out
		emit(req.Progress, Event{File: u.Path, Stage: StageWrite, Status: doneStatus(u), Elapsed: elapsed})
	}
	return result, nil
}

func doneStatus(u *driver.UnitResult) Status {
	if u.Cached {
		return StatusCached
	}
	return StatusDone
}

// ArtifactPath places the output of unitPath under outDir, keeping its
// location relative to the input directory it was found in.
func ArtifactPath(outDir string, roots []string, unitPath string, f asm.Format) string {
	rel := filepath.Base(unitPath)
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		if r, err := filepath.Rel(root, unitPath); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
			break
		}
	}
	rel = strings.TrimSuffix(rel, driver.ScriptExt)
	return filepath.Join(outDir, rel+f.Ext())
}

func writeArtifact(req *CompileRequest, u *driver.UnitResult) (string, error) {
	format := req.Emit
	if format == "" {
		format = asm.FormatText
	}
	data, err := u.Assembly.Encode(format)
	if err != nil {
		return "", fmt.Errorf("%s: %w", u.Path, err)
	}
	out := ArtifactPath(req.OutputDir, req.Paths, filepath.FromSlash(u.Path), format)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}
