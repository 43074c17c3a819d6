package buildpipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"udonsharp/internal/driver"
)

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// WatchOptions configure Watch.
type WatchOptions struct {
	Debounce time.Duration
	// Extra are additional files (catalogs, the manifest) that trigger a
	// rebuild when they change.
	Extra []string
	// Ready, when set, is closed once the watcher is armed.
	Ready chan<- struct{}
}

// Watch calls rebuild once per settled burst of changes to .uas files under
// roots or to any Extra file, until ctx is done. The first build is the
// caller's job.
func Watch(ctx context.Context, roots []string, opts WatchOptions, rebuild func(changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	extra := make(map[string]bool, len(opts.Extra))
	for _, p := range opts.Extra {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		extra[filepath.Clean(abs)] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return err
		}
	}
	for _, root := range roots {
		dir, err := watchRoot(root)
		if err != nil {
			return err
		}
		if err := addWatchRecursive(watcher, dir); err != nil {
			return err
		}
	}
	if opts.Ready != nil {
		close(opts.Ready)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, path)
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(path, extra) {
				continue
			}
			if len(pending) > 0 && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			pending[path] = true
			timer.Reset(debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = map[string]bool{}
			rebuild(changed)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func relevant(path string, extra map[string]bool) bool {
	if strings.HasSuffix(path, driver.ScriptExt) {
		return !strings.HasPrefix(filepath.Base(path), ".")
	}
	if abs, err := filepath.Abs(path); err == nil {
		return extra[abs]
	}
	return false
}

func watchRoot(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return filepath.Clean(abs), nil
	}
	return filepath.Dir(abs), nil
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	root = filepath.Clean(root)
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(entry.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
