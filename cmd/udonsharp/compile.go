package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"udonsharp/internal/asm"
	"udonsharp/internal/buildpipeline"
	"udonsharp/internal/driver"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] [path...]",
	Short: "Compile behaviour scripts to Udon assembly",
	Long: `Compile .uas behaviour scripts (files or directories) into Udon assembly.
Without a path the [compile].sources of udonsharp.toml are used.`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringP("output", "o", "", "output directory (default: print assembly of a single script to stdout)")
	compileCmd.Flags().String("emit", string(asm.FormatText), "artifact format (uasm|msgpack|cbor)")
	compileCmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
	compileCmd.Flags().Bool("disk-cache", false, "reuse units compiled by earlier runs")
	compileCmd.Flags().Bool("watch", false, "recompile when scripts, catalogs or the manifest change")
	compileCmd.Flags().String("ui", "auto", "progress interface (auto|on|off)")
	compileCmd.Flags().StringSlice("catalog", nil, "extra type catalog file (TOML), repeatable")
	compileCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
}

// compileRun holds everything one compile invocation needs across rebuilds.
type compileRun struct {
	settings settings
	output   outputOptions
	cache    *driver.DiskCache
	stdout   io.Writer
	stderr   io.Writer
}

func runCompile(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic(cmd)

	s, err := resolveSettings(cmd, args)
	if err != nil {
		return err
	}
	out, err := readOutputOptions(cmd)
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	if s.outputDir == "" && s.emit != asm.FormatText {
		return fmt.Errorf("--emit %s writes binary artifacts and needs -o", s.emit)
	}

	run := &compileRun{
		settings: s,
		output:   out,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
	}
	if s.diskCache {
		cache, err := driver.OpenDiskCache("udonsharp")
		if err != nil {
			return fmt.Errorf("failed to open disk cache: %w", err)
		}
		run.cache = cache
	}

	// the TUI owns the terminal, so it is skipped while watching
	useTUI := !watch && !out.quiet && shouldUseTUI(mode)
	ok, err := run.once(cmd.Context(), useTUI)
	if err != nil {
		return err
	}
	if watch {
		return run.watch(cmd.Context())
	}
	if !ok {
		return errDiagnostics
	}
	return nil
}

// once compiles every script a single time and reports the outcome. ok is
// false when any unit produced an error diagnostic.
func (r *compileRun) once(ctx context.Context, useTUI bool) (bool, error) {
	s := r.settings
	files, err := driver.ListScripts(s.paths...)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no %s scripts found under %s", driver.ScriptExt, strings.Join(s.paths, ", "))
	}
	if s.outputDir == "" && len(files) > 1 {
		return false, fmt.Errorf("found %d scripts; pass -o to write them to a directory", len(files))
	}
	catalog, err := s.buildCatalog()
	if err != nil {
		return false, err
	}

	req := buildpipeline.CompileRequest{
		Paths:     s.paths,
		Files:     files,
		OutputDir: s.outputDir,
		Emit:      s.emit,
		Driver: driver.Options{
			Catalog:        catalog,
			Compiler:       s.compiler,
			Resolver:       s.resolver,
			MaxDiagnostics: r.output.maxDiagnostics,
			Jobs:           s.jobs,
			Cache:          r.cache,
			EnableTimings:  r.output.timings,
		},
	}

	var res buildpipeline.CompileResult
	if useTUI && len(files) > 1 {
		res, err = runCompileWithUI(ctx, "udonsharp compile", files, &req)
	} else {
		res, err = buildpipeline.Compile(ctx, &req)
	}
	if res.Batch == nil {
		if err == nil {
			err = fmt.Errorf("compilation produced no result")
		}
		return false, err
	}

	bag := res.Batch.Bag()
	bag.Sort()
	if printErr := printDiagnostics(r.stderr, bag, res.Batch.FileSet, r.output); printErr != nil {
		return false, printErr
	}
	if err != nil {
		return false, err
	}

	if s.outputDir == "" {
		if u := &res.Batch.Units[0]; u.OK() {
			if _, err := io.WriteString(r.stdout, u.Assembly.Text()); err != nil {
				return false, err
			}
		}
	} else if !r.output.quiet {
		r.printOutputs(res)
	}
	if r.output.timings {
		printStageTimings(r.stderr, res.Timings)
		printUnitTimings(r.stderr, res.Batch)
	}
	return !res.Batch.HasErrors(), nil
}

func (r *compileRun) printOutputs(res buildpipeline.CompileResult) {
	var compiled, cached, failed int
	for i := range res.Batch.Units {
		u := &res.Batch.Units[i]
		switch {
		case !u.OK():
			failed++
			continue
		case u.Cached:
			cached++
		default:
			compiled++
		}
		fmt.Fprintf(r.stderr, "%s -> %s\n", u.Path, formatPathForOutput(r.settings.outputDir, res.Outputs[i]))
	}
	fmt.Fprintf(r.stderr, "%d compiled, %d cached, %d failed\n", compiled, cached, failed)
}

// watch rebuilds on every settled change until interrupted.
func (r *compileRun) watch(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !r.output.quiet {
		fmt.Fprintf(r.stderr, "watching %s (ctrl-c to stop)\n", strings.Join(r.settings.paths, ", "))
	}
	opts := buildpipeline.WatchOptions{Extra: r.settings.catalogFiles()}
	return buildpipeline.Watch(ctx, r.settings.paths, opts, func(changed []string) {
		if !r.output.quiet {
			fmt.Fprintf(r.stderr, "\n[%s] %d file(s) changed, rebuilding\n", time.Now().Format(time.TimeOnly), len(changed))
		}
		if _, err := r.once(ctx, false); err != nil {
			reportError(r.stderr, err)
		}
	})
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(root), rel))
}
