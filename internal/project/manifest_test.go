package project

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"udonsharp/internal/asm"
	"udonsharp/internal/diag"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, "[package]\nname = \"world\"\n")
	nested := filepath.Join(root, "Assets", "Scripts")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	if got != path {
		t.Fatalf("got %s, want %s", got, path)
	}
}

func TestFindManifestSkipsDirectories(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, "[package]\nname = \"world\"\n")
	nested := filepath.Join(root, "Assets")
	if err := os.MkdirAll(filepath.Join(nested, ManifestName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := FindManifest(nested)
	if err != nil || !ok || got != path {
		t.Fatalf("FindManifest: got %s ok=%v err=%v, want %s", got, ok, err, path)
	}
}

func TestFindManifestMissing(t *testing.T) {
	_, ok, err := FindManifest(t.TempDir())
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if ok {
		t.Skip("a udonsharp.toml exists above the temp directory")
	}
}

func TestLoadFullManifest(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `[package]
name = "world"
compiler = ">= 1.2, < 2"

[compile]
sources = ["Assets/Scripts", "/abs/extra"]
output = "build"
emit = "cbor"
jobs = 4
catalogs = ["catalogs/vrc.toml"]
disk_cache = true

[compat]
explicit_cast_fallback = false
proxy_setter_quirk = true
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Root != root || m.Config.Package.Name != "world" {
		t.Fatalf("manifest: got %+v", m)
	}
	wantSources := []string{filepath.Join(root, "Assets", "Scripts"), filepath.Clean("/abs/extra")}
	if got := m.Sources(); !slices.Equal(got, wantSources) {
		t.Fatalf("sources: got %v, want %v", got, wantSources)
	}
	if got := m.Catalogs(); len(got) != 1 || got[0] != filepath.Join(root, "catalogs", "vrc.toml") {
		t.Fatalf("catalogs: got %v", got)
	}
	if got := m.Output(); got != filepath.Join(root, "build") {
		t.Fatalf("output: got %s", got)
	}
	if m.Emit() != asm.FormatCBOR || m.Config.Compile.Jobs != 4 || !m.Config.Compile.DiskCache {
		t.Fatalf("compile section: got %+v", m.Config.Compile)
	}
	if m.CompilerOptions().ExplicitCastFallback {
		t.Fatalf("explicit_cast_fallback = false was ignored")
	}
	if !m.ResolverOptions().ProxySetterQuirk {
		t.Fatalf("proxy_setter_quirk = true was ignored")
	}
}

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	m, err := Load(writeManifest(t, root, "[package]\nname = \"world\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Sources(); len(got) != 1 || got[0] != root {
		t.Fatalf("default sources: got %v, want [%s]", got, root)
	}
	if m.Emit() != asm.FormatText {
		t.Fatalf("default emit: got %s", m.Emit())
	}
	if m.Output() != "" {
		t.Fatalf("default output: got %q", m.Output())
	}
	if !m.CompilerOptions().ExplicitCastFallback {
		t.Fatalf("explicit cast fallback should default to on")
	}
	if m.ResolverOptions().ProxySetterQuirk {
		t.Fatalf("proxy setter quirk should default to off")
	}
}

func TestLoadRejectsBadManifests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not toml", "[package\n", "failed to parse TOML"},
		{"no package", "[compile]\njobs = 1\n", "missing [package]"},
		{"no name", "[package]\ncompiler = \"1.0\"\n", "missing [package].name"},
		{"blank name", "[package]\nname = \"  \"\n", "missing [package].name"},
		{"bad constraint", "[package]\nname = \"w\"\ncompiler = \"not a version\"\n", "[package].compiler"},
		{"bad emit", "[package]\nname = \"w\"\n[compile]\nemit = \"exe\"\n", "[compile].emit"},
		{"negative jobs", "[package]\nname = \"w\"\n[compile]\njobs = -1\n", "[compile].jobs"},
		{"unknown key", "[package]\nname = \"w\"\nversion = \"1\"\n", "unknown key package.version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, t.TempDir(), tt.body))
			if err == nil {
				t.Fatalf("Load succeeded, want error containing %q", tt.want)
			}
			if diag.CodeOf(err) != diag.ProjBadManifest {
				t.Fatalf("code: got %v, want %s", err, diag.ProjBadManifest.ID())
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestCheckCompiler(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		code       diag.Code
	}{
		{"", "0.1.0-dev", diag.UnknownCode},
		{">= 1.2, < 2", "1.4.0", diag.UnknownCode},
		{"~1.2", "1.2.9", diag.UnknownCode},
		{">= 1.2, < 2", "2.0.0", diag.ProjVersionCheck},
		{"^1", "0.9.0", diag.ProjVersionCheck},
		{">= 1", "dev", diag.ProjVersionCheck},
	}
	for _, tt := range tests {
		t.Run(tt.constraint+"@"+tt.version, func(t *testing.T) {
			m := &Manifest{Path: ManifestName, Config: Config{Package: PackageConfig{Name: "w", Compiler: tt.constraint}}}
			err := m.CheckCompiler(tt.version)
			if got := diag.CodeOf(err); got != tt.code || (tt.code == diag.UnknownCode && err != nil) {
				t.Fatalf("got %v, want code %s", err, tt.code.ID())
			}
		})
	}
}

func TestLoadManifestFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"world\"\n")
	sub := filepath.Join(root, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	m, ok, err := LoadManifest(sub)
	if err != nil || !ok {
		t.Fatalf("LoadManifest: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Fatalf("root: got %s, want %s", m.Root, root)
	}
}
