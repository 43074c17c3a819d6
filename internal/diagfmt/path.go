package diagfmt

import (
	"os"
	"path/filepath"
	"strings"
)

func displayPath(path string, mode PathMode, base string) string {
	if path == "" {
		return "<unknown>"
	}
	native := filepath.FromSlash(path)
	switch mode {
	case PathModeBasename:
		return filepath.Base(native)
	case PathModeAbsolute:
		if abs, err := filepath.Abs(native); err == nil {
			return abs
		}
		return native
	case PathModeRelative, PathModeAuto:
		rel, ok := relativeTo(native, base)
		if ok {
			return rel
		}
		if mode == PathModeRelative {
			if abs, err := filepath.Abs(native); err == nil {
				return abs
			}
		}
		return native
	}
	return native
}

func relativeTo(path, base string) (string, bool) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		base = wd
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
