package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"udonsharp/internal/asm"
	"udonsharp/internal/compiler"
	"udonsharp/internal/project"
	"udonsharp/internal/resolver"
	"udonsharp/internal/types"
	"udonsharp/internal/version"
)

const noInputMessage = "no input path and no udonsharp.toml found\nplease pass a script or directory, e.g.:\n  udonsharp compile Assets/Scripts"

// compileFlags are the command-line values that can override udonsharp.toml.
// The *Set fields record whether the user passed the flag.
type compileFlags struct {
	output       string
	outputSet    bool
	emit         string
	emitSet      bool
	jobs         int
	jobsSet      bool
	diskCache    bool
	diskCacheSet bool
	catalogs     []string
}

// settings is the merged configuration of one compile or check run.
type settings struct {
	manifest  *project.Manifest
	paths     []string
	outputDir string
	emit      asm.Format
	jobs      int
	diskCache bool
	catalogs  []string
	compiler  compiler.Options
	resolver  resolver.Options
}

func readCompileFlags(cmd *cobra.Command) (compileFlags, error) {
	var f compileFlags
	var err error
	flags := cmd.Flags()
	if flags.Lookup("output") != nil {
		if f.output, err = flags.GetString("output"); err != nil {
			return f, fmt.Errorf("failed to get output flag: %w", err)
		}
		f.outputSet = flags.Changed("output")
	}
	if flags.Lookup("emit") != nil {
		if f.emit, err = flags.GetString("emit"); err != nil {
			return f, fmt.Errorf("failed to get emit flag: %w", err)
		}
		f.emitSet = flags.Changed("emit")
	}
	if flags.Lookup("disk-cache") != nil {
		if f.diskCache, err = flags.GetBool("disk-cache"); err != nil {
			return f, fmt.Errorf("failed to get disk-cache flag: %w", err)
		}
		f.diskCacheSet = flags.Changed("disk-cache")
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	f.jobsSet = flags.Changed("jobs")
	if f.catalogs, err = flags.GetStringSlice("catalog"); err != nil {
		return f, fmt.Errorf("failed to get catalog flag: %w", err)
	}
	return f, nil
}

// loadManifest honours --config and otherwise searches upwards from the
// working directory. A manifest whose compiler constraint rejects this
// build is an error.
func loadManifest(cmd *cobra.Command) (*project.Manifest, error) {
	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var m *project.Manifest
	if strings.TrimSpace(configPath) != "" {
		m, err = project.Load(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		var found bool
		m, found, err = project.LoadManifest(".")
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
	}
	if err := m.CheckCompiler(version.Version); err != nil {
		return nil, err
	}
	return m, nil
}

// mergeSettings layers flags over the manifest (which may be nil) over
// built-in defaults.
func mergeSettings(m *project.Manifest, args []string, f compileFlags) (settings, error) {
	s := settings{
		emit:     asm.FormatText,
		compiler: compiler.DefaultOptions(),
		manifest: m,
	}
	if m != nil {
		s.paths = m.Sources()
		s.outputDir = m.Output()
		s.emit = m.Emit()
		s.jobs = m.Config.Compile.Jobs
		s.diskCache = m.Config.Compile.DiskCache
		s.catalogs = m.Catalogs()
		s.compiler = m.CompilerOptions()
		s.resolver = m.ResolverOptions()
	}
	if len(args) > 0 {
		s.paths = args
	}
	if len(s.paths) == 0 {
		return s, errors.New(noInputMessage)
	}
	if f.outputSet {
		s.outputDir = f.output
	}
	if f.emitSet {
		format, err := asm.ParseFormat(f.emit)
		if err != nil {
			return s, err
		}
		s.emit = format
	}
	if f.jobsSet {
		if f.jobs < 0 {
			return s, fmt.Errorf("--jobs must not be negative")
		}
		s.jobs = f.jobs
	}
	if f.diskCacheSet {
		s.diskCache = f.diskCache
	}
	s.catalogs = append(s.catalogs, f.catalogs...)
	return s, nil
}

// catalogFiles are the files whose changes invalidate a watch build.
func (s settings) catalogFiles() []string {
	files := append([]string(nil), s.catalogs...)
	if s.manifest != nil {
		files = append(files, s.manifest.Path)
	}
	return files
}

// buildCatalog returns the builtin catalog extended with every catalog file.
// A fresh catalog is built per run because compiling seals it.
func (s settings) buildCatalog() (*types.Catalog, error) {
	c := types.NewBuiltinCatalog()
	for _, path := range s.catalogs {
		if err := c.LoadFile(path); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	}
	return c, nil
}

func resolveSettings(cmd *cobra.Command, args []string) (settings, error) {
	flags, err := readCompileFlags(cmd)
	if err != nil {
		return settings{}, err
	}
	m, err := loadManifest(cmd)
	if err != nil {
		return settings{}, err
	}
	return mergeSettings(m, args, flags)
}
