package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"udonsharp/internal/asm"
	"udonsharp/internal/compiler"
	"udonsharp/internal/diag"
	"udonsharp/internal/resolver"
)

// ManifestName is the file FindManifest looks for.
const ManifestName = "udonsharp.toml"

// Manifest is a loaded udonsharp.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the sections of udonsharp.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Compile CompileConfig `toml:"compile"`
	Compat  CompatConfig  `toml:"compat"`
}

type PackageConfig struct {
	Name string `toml:"name"`
	// Compiler is a semver constraint the running compiler must satisfy.
	Compiler string `toml:"compiler"`
}

// CompileConfig holds defaults for `udonsharp compile`. Paths are relative
// to the manifest directory.
type CompileConfig struct {
	Sources   []string `toml:"sources"`
	Output    string   `toml:"output"`
	Emit      string   `toml:"emit"`
	Jobs      int      `toml:"jobs"`
	Catalogs  []string `toml:"catalogs"`
	DiskCache bool     `toml:"disk_cache"`
}

type CompatConfig struct {
	ExplicitCastFallback bool `toml:"explicit_cast_fallback"`
	ProxySetterQuirk     bool `toml:"proxy_setter_quirk"`
}

// FindManifest returns the nearest udonsharp.toml in startDir or one of its
// parents. A directory with that name does not count.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		info, statErr := os.Stat(candidate)
		switch {
		case statErr == nil && !info.IsDir():
			return candidate, true, nil
		case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, statErr)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// LoadManifest finds udonsharp.toml above startDir and loads it. ok is false
// when there is no manifest.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// Load parses and validates the manifest at path. Validation failures are
// *diag.Error values with ProjBadManifest.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, diag.Errorf(diag.ProjBadManifest, "%s: failed to parse TOML: %v", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, diag.Errorf(diag.ProjBadManifest, "%s: unknown key %s", path, undecoded[0])
	}
	if !meta.IsDefined("package") {
		return nil, diag.Errorf(diag.ProjBadManifest, "%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, diag.Errorf(diag.ProjBadManifest, "%s: missing [package].name", path)
	}
	if c := strings.TrimSpace(cfg.Package.Compiler); c != "" {
		if _, err := semver.NewConstraint(c); err != nil {
			return nil, diag.Errorf(diag.ProjBadManifest, "%s: [package].compiler: %v", path, err)
		}
	}
	if !meta.IsDefined("compat", "explicit_cast_fallback") {
		cfg.Compat.ExplicitCastFallback = compiler.DefaultOptions().ExplicitCastFallback
	}
	if len(cfg.Compile.Sources) == 0 {
		cfg.Compile.Sources = []string{"."}
	}
	if _, err := asm.ParseFormat(cfg.Compile.Emit); err != nil {
		return nil, diag.Errorf(diag.ProjBadManifest, "%s: [compile].emit: %v", path, err)
	}
	if cfg.Compile.Jobs < 0 {
		return nil, diag.Errorf(diag.ProjBadManifest, "%s: [compile].jobs must not be negative", path)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// CheckCompiler verifies that compilerVersion satisfies [package].compiler.
func (m *Manifest) CheckCompiler(compilerVersion string) error {
	constraint := strings.TrimSpace(m.Config.Package.Compiler)
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return diag.Errorf(diag.ProjBadManifest, "%s: [package].compiler: %v", m.Path, err)
	}
	v, err := semver.NewVersion(strings.TrimSpace(compilerVersion))
	if err != nil {
		return diag.Errorf(diag.ProjVersionCheck, "%s: compiler version %q is not semantic: %v", m.Path, compilerVersion, err)
	}
	if ok, reasons := c.Validate(v); !ok {
		e := diag.Errorf(diag.ProjVersionCheck, "%s: compiler %s does not satisfy %q", m.Path, v, constraint)
		for _, r := range reasons {
			e.WithNote("%v", r)
		}
		return e
	}
	return nil
}

// Emit returns the configured output format.
func (m *Manifest) Emit() asm.Format {
	f, err := asm.ParseFormat(m.Config.Compile.Emit)
	if err != nil {
		return asm.FormatText
	}
	return f
}

// Sources returns [compile].sources resolved against the manifest directory.
func (m *Manifest) Sources() []string {
	return m.resolveAll(m.Config.Compile.Sources)
}

// Catalogs returns [compile].catalogs resolved against the manifest directory.
func (m *Manifest) Catalogs() []string {
	return m.resolveAll(m.Config.Compile.Catalogs)
}

// Output returns [compile].output resolved against the manifest directory,
// or "" when unset.
func (m *Manifest) Output() string {
	if strings.TrimSpace(m.Config.Compile.Output) == "" {
		return ""
	}
	return m.resolve(m.Config.Compile.Output)
}

// CompilerOptions maps [compat] onto code generation switches.
func (m *Manifest) CompilerOptions() compiler.Options {
	return compiler.Options{ExplicitCastFallback: m.Config.Compat.ExplicitCastFallback}
}

// ResolverOptions maps [compat] onto resolver switches.
func (m *Manifest) ResolverOptions() resolver.Options {
	return resolver.Options{ProxySetterQuirk: m.Config.Compat.ProxySetterQuirk}
}

func (m *Manifest) resolveAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, m.resolve(p))
	}
	return out
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Root, p)
}
