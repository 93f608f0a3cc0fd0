package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/callboard/internal/record"
)

type recordingSaver struct {
	mu       sync.Mutex
	sessions []record.Session
	channels []record.Channel
}

func (r *recordingSaver) SaveCallData(_ context.Context, sessions []record.Session, channels []record.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, sessions...)
	r.channels = append(r.channels, channels...)
	return nil
}

func (r *recordingSaver) sessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", "calldata.xml"))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return data
}

// drop writes a file under a temporary name and renames it into place.
func drop(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	tmp := filepath.Join(dir, "."+name+".part")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xml")
	if err := os.WriteFile(path, fixture(t), 0o644); err != nil {
		t.Fatal(err)
	}
	saver := &recordingSaver{}

	n, err := ImportFile(context.Background(), saver, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(saver.channels) != 3 {
		t.Errorf("expected 2 sessions and 3 channels, got %d and %d", n, len(saver.channels))
	}
}

func TestImportFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ImportFile(context.Background(), &recordingSaver{}, filepath.Join(dir, "missing.xml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.xml")
	os.WriteFile(bad, []byte("<CallData><CallSession>"), 0o644)
	if _, err := ImportFile(context.Background(), &recordingSaver{}, bad); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestWatcherImportsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	saver := &recordingSaver{}

	// Waiting before start is picked up by the backfill
	drop(t, dir, "early.xml", fixture(t))

	var mu sync.Mutex
	notified := 0
	w := NewWatcher(dir, saver, func(context.Context) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run: %v", err)
		}
	}()

	waitFor(t, "backfill", func() bool { return exists(filepath.Join(dir, ProcessedDir, "early.xml")) })

	drop(t, dir, "late.xml", fixture(t))
	drop(t, dir, "broken.xml", []byte("<CallData><CallSession>"))
	drop(t, dir, "notes.txt", []byte("ignored"))

	waitFor(t, "late import", func() bool { return exists(filepath.Join(dir, ProcessedDir, "late.xml")) })
	waitFor(t, "broken file moved", func() bool { return exists(filepath.Join(dir, FailedDir, "broken.xml")) })

	if saver.sessionCount() != 4 {
		t.Errorf("expected 4 sessions from two imports, got %d", saver.sessionCount())
	}
	if !exists(filepath.Join(dir, "notes.txt")) {
		t.Error("expected non-xml file to be left alone")
	}
	mu.Lock()
	defer mu.Unlock()
	if notified != 2 {
		t.Errorf("expected 2 notifications, got %d", notified)
	}
}
