// Package inbox imports call data exports dropped into a directory.
//
// Writers should create the file under another name and rename it to
// *.xml when complete; the watcher reacts to the file appearing.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/sweeney/callboard/internal/record"
	"github.com/sweeney/callboard/internal/xmlexport"
)

// Subdirectories of the inbox that imported and rejected files move to.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Saver stores parsed call data.
type Saver interface {
	SaveCallData(ctx context.Context, sessions []record.Session, channels []record.Channel) error
}

// ImportFile parses the call data export at path and saves it. It returns
// the number of sessions imported.
func ImportFile(ctx context.Context, st Saver, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sessions, channels, err := xmlexport.ParseCallData(f)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := st.SaveCallData(ctx, sessions, channels); err != nil {
		return 0, fmt.Errorf("saving %s: %w", filepath.Base(path), err)
	}
	return len(sessions), nil
}

// Watcher imports *.xml files as they appear in a directory, then moves
// them to processed/ or failed/.
type Watcher struct {
	dir    string
	store  Saver
	notify func(ctx context.Context)
}

// NewWatcher creates a Watcher. notify is called after each successful
// import and may be nil.
func NewWatcher(dir string, st Saver, notify func(ctx context.Context)) *Watcher {
	return &Watcher{dir: dir, store: st, notify: notify}
}

// Run imports files already waiting, then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	slog.Info("watching inbox", "dir", w.dir)

	if err := w.Backfill(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isExport(evt.Name) {
				w.handle(ctx, evt.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("inbox watch error", "error", err)
		}
	}
}

// Backfill imports exports already in the directory.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if isExport(e) {
			w.handle(ctx, e)
		}
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, path string) {
	// A Rename event also fires for the old name of a file moved away.
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	n, importErr := ImportFile(ctx, w.store, path)
	dest := ProcessedDir
	if importErr != nil {
		slog.Error("inbox import failed", "file", filepath.Base(path), "error", importErr)
		dest = FailedDir
	} else {
		slog.Info("imported inbox file", "file", filepath.Base(path), "sessions", n)
	}
	if err := os.Rename(path, filepath.Join(w.dir, dest, filepath.Base(path))); err != nil {
		slog.Error("moving inbox file", "file", filepath.Base(path), "error", err)
	}
	if importErr == nil && n > 0 && w.notify != nil {
		w.notify(ctx)
	}
}

func isExport(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
