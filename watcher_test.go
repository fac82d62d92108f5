package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startTestWatcher(t *testing.T, root string) *projectsWatcher {
	t.Helper()
	w := newProjectsWatcher(root, slog.New(slog.DiscardHandler))
	w.debounce = 50 * time.Millisecond
	go w.run()
	t.Cleanup(w.stop)
	// Give fsnotify a moment to register the initial watches.
	time.Sleep(100 * time.Millisecond)
	return w
}

func awaitSignal(t *testing.T, w *projectsWatcher, what string) {
	t.Helper()
	select {
	case _, ok := <-w.changes():
		if !ok {
			t.Fatalf("%s: watcher exited", what)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s: no change signalled", what)
	}
}

func TestProjectsWatcher_SignalsOnLogWrite(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-home-me-proj")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	w := startTestWatcher(t, root)

	if err := os.WriteFile(filepath.Join(proj, "s1.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	awaitSignal(t, w, "log write")
}

func TestProjectsWatcher_PicksUpNewProject(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root)

	proj := filepath.Join(root, "-home-me-new")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	awaitSignal(t, w, "new project")

	// Let the new directory's watch settle, then write into it.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(proj, "s1.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	awaitSignal(t, w, "log in new project")
}

func TestProjectsWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-p")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	w := startTestWatcher(t, root)

	if err := os.WriteFile(filepath.Join(proj, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.changes():
		t.Fatal("non-log file triggered a change")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestProjectsWatcher_Debounces(t *testing.T) {
	root := t.TempDir()
	proj := filepath.Join(root, "-p")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	w := startTestWatcher(t, root)

	path := filepath.Join(proj, "s.jsonl")
	for i := range 5 {
		if err := os.WriteFile(path, []byte{byte('0' + i), '\n'}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	awaitSignal(t, w, "burst")
	select {
	case <-w.changes():
		t.Error("burst of writes produced more than one signal")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestProjectsWatcher_StopClosesChanges(t *testing.T) {
	root := t.TempDir()
	w := newProjectsWatcher(root, slog.New(slog.DiscardHandler))
	go w.run()
	time.Sleep(50 * time.Millisecond)
	w.stop()
	w.stop() // idempotent

	select {
	case _, ok := <-w.changes():
		if ok {
			// A stray signal is fine; the channel must close after it.
			<-w.changes()
		}
	case <-time.After(5 * time.Second):
		t.Fatal("changes() not closed after stop")
	}
}
