package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"udonsharp/internal/diag"
	"udonsharp/internal/source"
	"udonsharp/internal/trace"
)

// ScriptExt is the extension of behaviour scripts.
const ScriptExt = ".uas"

// BatchResult holds every unit of one run in path order.
type BatchResult struct {
	FileSet *source.FileSet
	Units   []UnitResult
}

// HasErrors reports whether any unit produced an error diagnostic.
func (r *BatchResult) HasErrors() bool {
	for i := range r.Units {
		if bag := r.Units[i].Bag; bag != nil && bag.HasErrors() {
			return true
		}
	}
	return false
}

// Bag merges the diagnostics of all units.
func (r *BatchResult) Bag() *diag.Bag {
	out := diag.NewBag(0)
	for i := range r.Units {
		out.Merge(r.Units[i].Bag)
	}
	return out
}

// ListScripts returns the sorted .uas files under each path. A path naming
// a file is taken as is whatever its extension.
func ListScripts(paths ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		files = append(files, clean)
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, ScriptExt) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %q: %w", root, err)
		}
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// CompilePaths collects scripts under paths and compiles them.
func CompilePaths(ctx context.Context, paths []string, opts Options) (*BatchResult, error) {
	files, err := ListScripts(paths...)
	if err != nil {
		return nil, err
	}
	return CompileFiles(ctx, files, opts)
}

// CompileFiles compiles files in parallel, at most opts.Jobs at a time.
// Compile faults are diagnostics on the unit; the error return is reserved
// for cancellation.
func CompileFiles(ctx context.Context, files []string, opts Options) (*BatchResult, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "compile batch")
	defer span.End(fmt.Sprintf("%d files", len(files)))

	fileSet := source.NewFileSet()
	result := &BatchResult{FileSet: fileSet, Units: make([]UnitResult, len(files))}
	if len(files) == 0 {
		return result, nil
	}

	// Files are loaded up front: FileSet is not safe for concurrent writes.
	fileIDs := make([]source.FileID, len(files))
	loadErrors := make(map[int]error)
	for i, path := range files {
		opts.PhaseObserver.emit(path, PhaseLoad, PhaseStart, 0)
		id, err := fileSet.Load(path)
		if err != nil {
			id = fileSet.AddVirtual(path, nil)
			loadErrors[i] = err
			opts.PhaseObserver.emit(path, PhaseLoad, PhaseFailed, 0)
		} else {
			opts.PhaseObserver.emit(path, PhaseLoad, PhaseEnd, 0)
		}
		fileIDs[i] = id
	}

	env := newUnitEnv(opts)
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file := fileSet.Get(fileIDs[i])
			if loadErr, failed := loadErrors[i]; failed {
				bag := diag.NewBag(opts.MaxDiagnostics)
				bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{File: file.ID}, "failed to load file: "+loadErr.Error()))
				result.Units[i] = UnitResult{Path: file.Path, FileID: file.ID, Bag: bag}
				return nil
			}
			// индексы уникальны для каждой горутины, мьютекс не нужен
			result.Units[i] = env.compile(gctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		return result, fmt.Errorf("compile batch: %w", err)
	}
	return result, nil
}
