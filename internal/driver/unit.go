package driver

import (
	"context"
	"fmt"
	"time"

	"fortio.org/safecast"

	"udonsharp/internal/asm"
	"udonsharp/internal/compiler"
	"udonsharp/internal/diag"
	"udonsharp/internal/observ"
	"udonsharp/internal/resolver"
	"udonsharp/internal/script"
	"udonsharp/internal/source"
	"udonsharp/internal/trace"
	"udonsharp/internal/types"
	"udonsharp/internal/version"
)

// Options configure a compilation run.
type Options struct {
	// Catalog is the shared base catalog; a builtin one when nil. Each unit
	// compiles against its own overlay.
	Catalog  *types.Catalog
	Compiler compiler.Options
	Resolver resolver.Options
	// Usings are namespaces searched by every unit before its own using lines.
	Usings         []string
	MaxDiagnostics int
	// Jobs bounds parallel units; GOMAXPROCS when zero or negative.
	Jobs int
	// Cache is consulted before compiling and filled after success.
	Cache         *DiskCache
	PhaseObserver PhaseObserver
	EnableTimings bool
}

// UnitResult is the outcome of one .uas file.
type UnitResult struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	// Behaviour is the declared behaviour name, empty when parsing failed.
	Behaviour string
	// Program is nil for cache hits and failed units.
	Program  *asm.Program
	Assembly *asm.Assembly
	Externs  []string
	Cached   bool
	Timing   *observ.Report
}

// OK reports whether the unit produced an assembly.
func (r *UnitResult) OK() bool {
	return r != nil && r.Assembly != nil && (r.Bag == nil || !r.Bag.HasErrors())
}

// unitEnv is shared by all units of a run.
type unitEnv struct {
	opts        Options
	fingerprint string
}

func newUnitEnv(opts Options) *unitEnv {
	if opts.Catalog == nil {
		opts.Catalog = types.NewBuiltinCatalog()
	}
	env := &unitEnv{opts: opts}
	if opts.Cache != nil {
		env.fingerprint = opts.Catalog.Fingerprint()
	}
	return env
}

// CompileSource compiles an in-memory script. Tests and tools use it where a
// file on disk would be noise.
func CompileSource(ctx context.Context, name string, src []byte, opts Options) (*source.FileSet, UnitResult) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, src)
	return fs, newUnitEnv(opts).compile(ctx, fs.Get(id))
}

func (env *unitEnv) compile(ctx context.Context, file *source.File) (res UnitResult) {
	ctx, span := trace.Start(ctx, trace.ScopeUnit, "unit "+file.Path)
	res = UnitResult{
		Path:   file.Path,
		FileID: file.ID,
		Bag:    diag.NewBag(env.opts.MaxDiagnostics),
	}
	var timer *observ.Timer
	if env.opts.EnableTimings {
		timer = observ.NewTimer()
	}
	defer func() {
		if timer != nil {
			r := timer.Report()
			res.Timing = &r
		}
		detail := "ok"
		switch {
		case res.Cached:
			detail = "cached"
		case !res.OK():
			detail = fmt.Sprintf("%d diagnostics", res.Bag.Len())
		}
		span.End(detail)
	}()

	obs := env.opts.PhaseObserver
	var key Digest
	if env.opts.Cache != nil {
		key = cacheKey(keyInputs{
			content:     file.Hash,
			fingerprint: env.fingerprint,
			version:     version.Version,
			compiler:    env.opts.Compiler,
			resolver:    env.opts.Resolver,
			usings:      env.opts.Usings,
		})
		if env.lookup(key, file, &res, timer) {
			return res
		}
	}

	reporter := diag.BagReporter{Bag: res.Bag}
	var maxErrors uint
	if n, err := safecast.Conv[uint](env.opts.MaxDiagnostics); err == nil {
		maxErrors = n
	}

	end, started := env.begin(timer, file.Path, PhaseParse)
	parsed, ok := script.Parse(file, script.Options{Reporter: reporter, MaxErrors: maxErrors})
	if !ok {
		end("")
		obs.emit(file.Path, PhaseParse, PhaseFailed, time.Since(started))
		return res
	}
	end(fmt.Sprintf("%d methods", len(parsed.Methods)))
	obs.emit(file.Path, PhaseParse, PhaseEnd, time.Since(started))
	res.Behaviour = parsed.Behaviour

	if err := ctx.Err(); err != nil {
		diag.ReportErr(reporter, err, parsed.BehaviourSpan)
		return res
	}

	end, started = env.begin(timer, file.Path, PhaseCompile)
	prog, err := script.Compile(parsed, script.Config{
		Catalog:     env.opts.Catalog,
		Resolver:    env.opts.Resolver,
		Compiler:    env.opts.Compiler,
		Tracer:      trace.FromContext(ctx),
		TraceParent: span.ID(),
		Usings:      env.opts.Usings,
	})
	end("")
	if err != nil {
		diag.ReportErr(reporter, err, parsed.BehaviourSpan)
		obs.emit(file.Path, PhaseCompile, PhaseFailed, time.Since(started))
		return res
	}
	obs.emit(file.Path, PhaseCompile, PhaseEnd, time.Since(started))
	res.Program = prog
	res.Externs = prog.Code.Externs()

	end, started = env.begin(timer, file.Path, PhaseAssemble)
	assembly, err := asm.Assemble(prog)
	if err != nil {
		end("")
		diag.ReportErr(reporter, err, parsed.BehaviourSpan)
		obs.emit(file.Path, PhaseAssemble, PhaseFailed, time.Since(started))
		return res
	}
	end(fmt.Sprintf("%d bytes", assembly.Size))
	obs.emit(file.Path, PhaseAssemble, PhaseEnd, time.Since(started))
	res.Assembly = assembly

	if env.opts.Cache != nil && !res.Bag.HasErrors() {
		end, started = env.begin(timer, file.Path, PhaseCache)
		err := env.opts.Cache.Put(key, &DiskPayload{
			Path:      file.Path,
			Behaviour: res.Behaviour,
			Externs:   res.Externs,
			Assembly:  assembly,
		})
		end("store")
		obs.emit(file.Path, PhaseCache, PhaseEnd, time.Since(started))
		if err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeUnit, "cache store failed", err.Error(), span.ID())
		}
	}
	return res
}

// lookup fills res from the cache. A corrupt entry is treated as a miss.
func (env *unitEnv) lookup(key Digest, file *source.File, res *UnitResult, timer *observ.Timer) bool {
	end, started := env.begin(timer, file.Path, PhaseCache)
	payload, ok, err := env.opts.Cache.Get(key)
	if err != nil || !ok {
		end("miss")
		env.opts.PhaseObserver.emit(file.Path, PhaseCache, PhaseEnd, time.Since(started))
		return false
	}
	end("hit")
	env.opts.PhaseObserver.emit(file.Path, PhaseCache, PhaseEnd, time.Since(started))
	res.Cached = true
	res.Behaviour = payload.Behaviour
	res.Externs = payload.Externs
	res.Assembly = payload.Assembly
	return true
}

func (env *unitEnv) begin(timer *observ.Timer, path string, phase Phase) (func(string), time.Time) {
	env.opts.PhaseObserver.emit(path, phase, PhaseStart, 0)
	return timer.Begin(string(phase)), time.Now()
}
