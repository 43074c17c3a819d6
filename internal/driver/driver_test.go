package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"udonsharp/internal/asm"
	"udonsharp/internal/compiler"
	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
	"udonsharp/internal/trace"
)

const okScript = `behaviour Counter
using System
field public int total
method Start()
  set total = Int32.op_Addition(total, 1)
end
`

func writeScript(t *testing.T, dir, rel, src string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func TestCompileSource(t *testing.T) {
	_, res := CompileSource(context.Background(), "counter.uas", []byte(okScript), Options{Compiler: compiler.DefaultOptions()})
	if !res.OK() {
		t.Fatalf("unit failed: %v", res.Bag.Items())
	}
	if res.Behaviour != "Counter" || res.Assembly.Name != "Counter" {
		t.Fatalf("behaviour: got %q / %q", res.Behaviour, res.Assembly.Name)
	}
	if len(res.Assembly.Entries) != 1 || res.Assembly.Entries[0].Name != "_start" {
		t.Fatalf("entries: got %+v", res.Assembly.Entries)
	}
	if !slices.Contains(res.Externs, resolver.ExternInt32Addition) {
		t.Fatalf("externs: got %v", res.Externs)
	}
	if res.Program == nil || res.Cached {
		t.Fatalf("fresh compile should keep its program")
	}
}

func TestCompileSourceReportsDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"syntax", "behaviour P\nmethod Start()\n", diag.SynMissingEnd},
		{"semantic", "behaviour P\nmethod Start()\n  let x = nothing\nend\n", diag.SemaUnresolvedName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := CompileSource(context.Background(), "p.uas", []byte(tt.src), Options{})
			if res.OK() || res.Assembly != nil {
				t.Fatalf("unit succeeded")
			}
			items := res.Bag.Items()
			if len(items) == 0 || items[0].Code != tt.code {
				t.Fatalf("got %v, want %s", items, tt.code.ID())
			}
		})
	}
}

func TestListScripts(t *testing.T) {
	dir := t.TempDir()
	a := writeScript(t, dir, "b.uas", okScript)
	b := writeScript(t, dir, "nested/a.uas", okScript)
	writeScript(t, dir, ".hidden/x.uas", okScript)
	writeScript(t, dir, "notes.txt", "not a script")
	single := writeScript(t, t.TempDir(), "single.txt", okScript)

	got, err := ListScripts(dir, single, a)
	if err != nil {
		t.Fatalf("ListScripts: %v", err)
	}
	want := []string{a, b, single}
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if _, err := ListScripts(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("missing path accepted")
	}
}

func TestCompilePathsInParallel(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeScript(t, dir, name+".uas", strings.Replace(okScript, "Counter", "Counter"+strings.ToUpper(name), 1))
	}
	writeScript(t, dir, "e.uas", "behaviour E\nfield Nope x\n")

	res, err := CompilePaths(context.Background(), []string{dir}, Options{Jobs: 2})
	if err != nil {
		t.Fatalf("CompilePaths: %v", err)
	}
	if len(res.Units) != 5 {
		t.Fatalf("got %d units, want 5", len(res.Units))
	}
	for i, u := range res.Units[:4] {
		if !u.OK() {
			t.Fatalf("unit %d (%s) failed: %v", i, u.Path, u.Bag.Items())
		}
		if want := "Counter" + strings.ToUpper(string(rune('a'+i))); u.Behaviour != want {
			t.Fatalf("unit %d: got %s, want %s", i, u.Behaviour, want)
		}
	}
	if !res.HasErrors() {
		t.Fatalf("batch with a broken unit reports no errors")
	}
	bag := res.Bag()
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SynUnknownType {
		t.Fatalf("merged diagnostics: got %v", bag.Items())
	}
	if f := res.FileSet.Get(bag.Items()[0].Primary.File); f == nil || !strings.HasSuffix(f.Path, "e.uas") {
		t.Fatalf("diagnostic points at the wrong file")
	}
}

func TestCompileFilesReportsLoadErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.uas")
	res, err := CompileFiles(context.Background(), []string{missing}, Options{})
	if err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	u := res.Units[0]
	if u.OK() || u.Bag.Len() != 1 || u.Bag.Items()[0].Code != diag.IOLoadFileError {
		t.Fatalf("got %v, want %s", u.Bag.Items(), diag.IOLoadFileError.ID())
	}
	if f := res.FileSet.Get(u.FileID); f == nil || len(f.Content) != 0 {
		t.Fatalf("load failure should register an empty file")
	}
}

func TestCompileFilesCancelled(t *testing.T) {
	path := writeScript(t, t.TempDir(), "p.uas", okScript)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CompileFiles(ctx, []string{path}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestPhaseObserver(t *testing.T) {
	path := writeScript(t, t.TempDir(), "p.uas", okScript)
	var (
		mu     sync.Mutex
		events []string
	)
	obs := func(ev PhaseEvent) {
		mu.Lock()
		defer mu.Unlock()
		status := map[PhaseStatus]string{PhaseStart: "start", PhaseEnd: "end", PhaseFailed: "failed"}[ev.Status]
		events = append(events, string(ev.Phase)+":"+status)
	}
	if _, err := CompileFiles(context.Background(), []string{path}, Options{PhaseObserver: obs}); err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	want := []string{
		"load:start", "load:end",
		"parse:start", "parse:end",
		"compile:start", "compile:end",
		"assemble:start", "assemble:end",
	}
	if !slices.Equal(events, want) {
		t.Fatalf("got %v, want %v", events, want)
	}
}

func TestTimings(t *testing.T) {
	_, res := CompileSource(context.Background(), "p.uas", []byte(okScript), Options{EnableTimings: true})
	if res.Timing == nil {
		t.Fatalf("no timing report")
	}
	var names []string
	for _, p := range res.Timing.Phases {
		names = append(names, p.Name)
	}
	if want := []string{"parse", "compile", "assemble"}; !slices.Equal(names, want) {
		t.Fatalf("phases: got %v, want %v", names, want)
	}
	_, res = CompileSource(context.Background(), "p.uas", []byte(okScript), Options{})
	if res.Timing != nil {
		t.Fatalf("timing recorded without EnableTimings")
	}
}

func TestUnitSpans(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	path := writeScript(t, t.TempDir(), "p.uas", okScript)
	if _, err := CompileFiles(ctx, []string{path}, Options{}); err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	var batch, unit *trace.Event
	events := ring.Snapshot()
	for i := range events {
		ev := &events[i]
		if ev.Kind != trace.KindSpanEnd {
			continue
		}
		switch {
		case ev.Name == "compile batch":
			batch = ev
		case strings.HasPrefix(ev.Name, "unit "):
			unit = ev
		}
	}
	if batch == nil || unit == nil {
		t.Fatalf("missing spans in %+v", events)
	}
	if unit.ParentID != batch.SpanID || unit.Detail != "ok" {
		t.Fatalf("unit span: got parent %d detail %q, want parent %d detail ok", unit.ParentID, unit.Detail, batch.SpanID)
	}
}

func TestDiskCacheServesUnchangedUnits(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	path := writeScript(t, t.TempDir(), "p.uas", okScript)
	opts := Options{Cache: cache, Compiler: compiler.DefaultOptions()}

	first, err := CompileFiles(context.Background(), []string{path}, opts)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	if first.Units[0].Cached || !first.Units[0].OK() {
		t.Fatalf("first compile: cached=%v ok=%v", first.Units[0].Cached, first.Units[0].OK())
	}

	second, err := CompileFiles(context.Background(), []string{path}, opts)
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}
	u := second.Units[0]
	if !u.Cached || !u.OK() || u.Program != nil {
		t.Fatalf("second compile: cached=%v ok=%v", u.Cached, u.OK())
	}
	if u.Assembly.Text() != first.Units[0].Assembly.Text() {
		t.Fatalf("cached assembly differs:\n%s\nvs\n%s", u.Assembly.Text(), first.Units[0].Assembly.Text())
	}
	if u.Behaviour != "Counter" || !slices.Equal(u.Externs, first.Units[0].Externs) {
		t.Fatalf("cached metadata: got %s %v", u.Behaviour, u.Externs)
	}

	opts.Compiler.ExplicitCastFallback = false
	third, err := CompileFiles(context.Background(), []string{path}, opts)
	if err != nil {
		t.Fatalf("third compile: %v", err)
	}
	if third.Units[0].Cached {
		t.Fatalf("changed options still hit the cache")
	}
}

func TestDiskCacheSkipsBrokenUnits(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	path := writeScript(t, t.TempDir(), "p.uas", "behaviour P\nfield Nope x\n")
	for i := range 2 {
		res, err := CompileFiles(context.Background(), []string{path}, Options{Cache: cache})
		if err != nil {
			t.Fatalf("compile %d: %v", i, err)
		}
		if res.Units[0].Cached || !res.HasErrors() {
			t.Fatalf("compile %d: broken unit served from cache", i)
		}
	}
}

func TestDiskCacheGetPut(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	key := Digest{1, 2, 3}
	if _, ok, err := cache.Get(key); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	in := &DiskPayload{Path: "p.uas", Behaviour: "P", Assembly: &asm.Assembly{Name: "P", Size: 8}}
	if err := cache.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	out, ok, err := cache.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if out.Behaviour != "P" || out.Assembly.Size != 8 || out.Schema != diskCacheSchemaVersion {
		t.Fatalf("payload: got %+v", out)
	}
	matches, _ := filepath.Glob(filepath.Join(cache.Dir(), "units", "*", "tmp-*"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := cache.Get(key); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	key := Digest{9}
	p := cache.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte{0xc1, 0xff}, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok, err := cache.Get(key); ok || err == nil {
		t.Fatalf("corrupt entry: ok=%v err=%v", ok, err)
	}
}

func TestCacheKeyInputs(t *testing.T) {
	base := keyInputs{
		content:     [32]byte{1},
		fingerprint: "fp",
		version:     "1.0.0",
		compiler:    compiler.Options{ExplicitCastFallback: true},
		usings:      []string{"UnityEngine"},
	}
	ref := cacheKey(base)
	if cacheKey(base) != ref {
		t.Fatalf("key is not deterministic")
	}
	variants := map[string]func(k *keyInputs){
		"content":     func(k *keyInputs) { k.content[0] = 2 },
		"fingerprint": func(k *keyInputs) { k.fingerprint = "fp2" },
		"version":     func(k *keyInputs) { k.version = "1.0.1" },
		"compiler":    func(k *keyInputs) { k.compiler.ExplicitCastFallback = false },
		"resolver":    func(k *keyInputs) { k.resolver.ProxySetterQuirk = true },
		"usings":      func(k *keyInputs) { k.usings = []string{"Unity", "Engine"} },
	}
	for name, mutate := range variants {
		k := base
		k.usings = slices.Clone(base.usings)
		mutate(&k)
		if cacheKey(k) == ref {
			t.Fatalf("changing %s kept the key", name)
		}
	}
}
