package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string) (*Watcher, chan []Change) {
	t.Helper()
	w := New(Config{
		Root:     root,
		Interval: 20 * time.Millisecond,
		Quiet:    40 * time.Millisecond,
	})
	batches := make(chan []Change, 10)
	w.OnChange(func(b []Change) {
		batches <- b
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for !w.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Wait for the initial scan.
	time.Sleep(50 * time.Millisecond)
	return w, batches
}

func waitBatch(t *testing.T, batches chan []Change) []Change {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for change batch")
		return nil
	}
}

func TestWatcher_Modify(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "site.css")
	if err := os.WriteFile(file, []byte("a{}"), 0644); err != nil {
		t.Fatal(err)
	}

	w, batches := startWatcher(t, tmpDir)
	defer w.Stop()

	if err := os.WriteFile(file, []byte("a{color:red}"), 0644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, batches)
	if len(batch) != 1 || batch[0].Path != "site.css" || batch[0].Op != Modified {
		t.Errorf("batch = %+v, want one modification of site.css", batch)
	}
}

func TestWatcher_CreateAndRemove(t *testing.T) {
	tmpDir := t.TempDir()
	old := filepath.Join(tmpDir, "old.png")
	if err := os.WriteFile(old, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w, batches := startWatcher(t, tmpDir)
	defer w.Stop()

	if err := os.MkdirAll(filepath.Join(tmpDir, "img"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "img", "new.png"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(old); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, batches)
	if len(batch) != 2 {
		t.Fatalf("batch = %+v, want 2 changes", batch)
	}
	if batch[0].Path != "img/new.png" || batch[0].Op != Created {
		t.Errorf("batch[0] = %+v, want img/new.png created", batch[0])
	}
	if batch[1].Path != "old.png" || batch[1].Op != Removed {
		t.Errorf("batch[1] = %+v, want old.png removed", batch[1])
	}
}

func TestWatcher_Ignore(t *testing.T) {
	patterns := []string{"**/*.tmp", "node_modules", "drafts/**"}

	tests := []struct {
		path   string
		ignore bool
	}{
		{"a.tmp", true},
		{"deep/b.tmp", true},
		{"node_modules", true},
		{"drafts/post.html", true},
		{"index.html", false},
		{"attempt.css", false},
	}
	for _, tt := range tests {
		if got := matchAny(patterns, tt.path); got != tt.ignore {
			t.Errorf("matchAny(%q) = %v, want %v", tt.path, got, tt.ignore)
		}
	}
}

func TestWatcher_SetIgnore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "public"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "public", "app.js"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	css := filepath.Join(tmpDir, "site.css")
	if err := os.WriteFile(css, []byte("a{}"), 0644); err != nil {
		t.Fatal(err)
	}

	w, batches := startWatcher(t, tmpDir)
	defer w.Stop()

	w.SetIgnore(append(append([]string(nil), DefaultIgnore...), "public"))
	if err := os.WriteFile(filepath.Join(tmpDir, "public", "late.js"), []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(css, []byte("a{color:red}"), 0644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, batches)
	if len(batch) != 1 || batch[0].Path != "site.css" || batch[0].Op != Modified {
		t.Errorf("batch = %+v, want only the site.css modification", batch)
	}
}

func TestRescoped(t *testing.T) {
	changes := []Change{
		{Path: "dist/app.js", Op: Created},
		{Path: "public/app.js", Op: Removed},
		{Path: "index.html", Op: Modified},
		{Path: "dist/new.js", Op: Removed},
	}
	got := rescoped(changes, []string{"dist"}, []string{"public"})
	if len(got) != 2 || got[0].Path != "index.html" || got[1].Path != "dist/new.js" {
		t.Errorf("rescoped = %+v, want index.html and dist/new.js", got)
	}
}

func TestWatcher_IsRunning(t *testing.T) {
	w := New(Config{Root: t.TempDir()})
	if w.IsRunning() {
		t.Error("Watcher should not be running initially")
	}
}
