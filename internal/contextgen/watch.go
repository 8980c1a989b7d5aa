package contextgen

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/forgewright/planloom/internal/logging"
)

// Watch watches projectPath's manifest files (non-recursively) plus its
// plans/ directory, invoking onChange whenever one of them is written,
// created, or removed. It blocks until ctx is cancelled or the watcher
// fails to start, and is never required for a single synchronous Generate
// call — a long-running pipeline process opts into it explicitly.
func Watch(ctx context.Context, projectPath string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, name := range manifestNames {
		candidate := filepath.Join(projectPath, name)
		if _, statErr := os.Stat(candidate); statErr == nil {
			if addErr := watcher.Add(candidate); addErr != nil {
				logging.For(logging.ComponentContextGen).Warnw("watch: failed to add manifest", "file", candidate, "err", addErr)
			}
		}
	}

	plansDir := filepath.Join(projectPath, "plans")
	if _, statErr := os.Stat(plansDir); statErr == nil {
		if addErr := watcher.Add(plansDir); addErr != nil {
			logging.For(logging.ComponentContextGen).Warnw("watch: failed to add plans dir", "dir", plansDir, "err", addErr)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				onChange()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.For(logging.ComponentContextGen).Warnw("watch: fsnotify error", "err", watchErr)
		}
	}
}
