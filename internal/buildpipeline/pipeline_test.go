package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"udonsharp/internal/asm"
	"udonsharp/internal/driver"
)

const script = "behaviour P\nfield public int hp = 3\nmethod Start()\nend\n"

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCompileWritesArtifacts(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "p.uas"), script)
	writeFile(t, filepath.Join(src, "npc", "q.uas"), strings.Replace(script, "behaviour P", "behaviour Q", 1))

	for _, format := range []asm.Format{asm.FormatText, asm.FormatMsgpack, asm.FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			res, err := Compile(context.Background(), &CompileRequest{
				Paths:     []string{src},
				OutputDir: out,
				Emit:      format,
			})
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			want := []string{
				filepath.Join(out, "npc", "q"+format.Ext()),
				filepath.Join(out, "p"+format.Ext()),
			}
			if len(res.Outputs) != 2 || res.Outputs[0] != want[0] || res.Outputs[1] != want[1] {
				t.Fatalf("outputs: got %v, want %v", res.Outputs, want)
			}
			data, err := os.ReadFile(want[1])
			if err != nil {
				t.Fatalf("read artifact: %v", err)
			}
			if format == asm.FormatText {
				if !strings.Contains(string(data), ".data_start") {
					t.Fatalf("text artifact: %s", data)
				}
				return
			}
			a, err := asm.Decode(format, data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if a.Name != "P" {
				t.Fatalf("decoded name: got %s", a.Name)
			}
		})
	}
}

func TestCompileSkipsBrokenUnits(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "bad.uas"), "behaviour B\nfield Nope x\n")
	writeFile(t, filepath.Join(src, "good.uas"), script)

	res, err := Compile(context.Background(), &CompileRequest{Paths: []string{src}, OutputDir: out})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.Batch.HasErrors() {
		t.Fatalf("broken unit not reported")
	}
	if res.Outputs[0] != "" || res.Outputs[1] == "" {
		t.Fatalf("outputs: got %v", res.Outputs)
	}
	if _, err := os.Stat(filepath.Join(out, "bad.uasm")); !os.IsNotExist(err) {
		t.Fatalf("artifact written for a broken unit")
	}
}

func TestCompileProgressEvents(t *testing.T) {
	src := t.TempDir()
	path := filepath.Join(src, "p.uas")
	writeFile(t, path, script)
	sink := &RecordingSink{}
	res, err := Compile(context.Background(), &CompileRequest{Paths: []string{path}, Progress: sink})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	events := sink.Events()
	if len(events) == 0 || events[0].Status != StatusQueued {
		t.Fatalf("first event should queue the file: %+v", events)
	}
	last := events[len(events)-1]
	if last.Stage != StageWrite || last.Status != StatusDone {
		t.Fatalf("last event: got %+v", last)
	}
	seen := map[Stage]bool{}
	for _, ev := range events {
		if ev.Status == StatusWorking {
			seen[ev.Stage] = true
		}
	}
	for _, stage := range []Stage{StageLoad, StageParse, StageCompile, StageAssemble} {
		if !seen[stage] {
			t.Fatalf("no working event for %s in %+v", stage, events)
		}
	}
	if !res.Timings.Has(StageParse) || !res.Timings.Has(StageAssemble) {
		t.Fatalf("timings missing stages")
	}
}

func TestCompileReportsCachedUnits(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "p.uas"), script)
	cache, err := driver.OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	req := &CompileRequest{Paths: []string{src}, Driver: driver.Options{Cache: cache}}
	if _, err := Compile(context.Background(), req); err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	sink := &RecordingSink{}
	req.Progress = sink
	if _, err := Compile(context.Background(), req); err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	events := sink.Events()
	if last := events[len(events)-1]; last.Status != StatusCached {
		t.Fatalf("last event: got %+v, want cached", last)
	}
}

func TestCompileRequestErrors(t *testing.T) {
	if _, err := Compile(context.Background(), nil); err == nil {
		t.Fatalf("nil request accepted")
	}
	if _, err := Compile(context.Background(), &CompileRequest{}); err == nil {
		t.Fatalf("request without paths accepted")
	}
}

func TestArtifactPath(t *testing.T) {
	root := t.TempDir()
	unit := filepath.Join(root, "a", "b.uas")
	tests := []struct {
		name  string
		roots []string
		want  string
	}{
		{"under root", []string{root}, filepath.Join("out", "a", "b.uasm")},
		{"file root", []string{unit}, filepath.Join("out", "b.uasm")},
		{"no root", nil, filepath.Join("out", "b.uasm")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArtifactPath("out", tt.roots, unit, asm.FormatText); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWatchRebuildsOnScriptChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.uas"), script)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{dir}, WatchOptions{Debounce: 20 * time.Millisecond, Ready: ready}, func(changed []string) {
			changes <- changed
		})
	}()
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("Watch: %v", err)
	}

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "p.uas"), script+"# edit\n")

	select {
	case changed := <-changes:
		if len(changed) != 1 || filepath.Base(changed[0]) != "p.uas" {
			t.Fatalf("changed: got %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no rebuild after editing a script")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}
