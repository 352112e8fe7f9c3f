package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/ingest"
)

func writeFile(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestCollectDirectoryOrdersByModTime(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(root, "b.pdf"), base.Add(2*time.Minute))
	writeFile(t, filepath.Join(root, "sub", "a.PNG"), base)
	writeFile(t, filepath.Join(root, "notes.txt"), base)
	writeFile(t, filepath.Join(root, ".hidden", "c.jpg"), base)

	results, stats, err := ingest.CollectDirectory(root, true)
	if err != nil {
		t.Fatalf("CollectDirectory failed: %v", err)
	}
	if stats.Matched != 2 || len(results) != 2 {
		t.Fatalf("expected 2 matches, got stats=%+v results=%+v", stats, results)
	}
	if filepath.Base(results[0].Path) != "a.PNG" || filepath.Base(results[1].Path) != "b.pdf" {
		t.Fatalf("unexpected order: %s, %s", results[0].Path, results[1].Path)
	}
}

func TestCollectDirectoryRequiresRoot(t *testing.T) {
	if _, _, err := ingest.CollectDirectory("  ", false); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestReadUploadUsesBaseName(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "nota.pdf")
	writeFile(t, path, time.Now())

	up, err := ingest.ReadUpload(path)
	if err != nil {
		t.Fatalf("ReadUpload failed: %v", err)
	}
	if up.Filename != "nota.pdf" || string(up.Data) != "x" {
		t.Fatalf("unexpected upload: %+v", up)
	}
}

func TestWatchEmitsNewInvoices(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := ingest.Watch(ctx, ingest.WatchConfig{Roots: []string{root}, Debounce: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	writeFile(t, filepath.Join(root, "ignored.txt"), time.Now())
	writeFile(t, filepath.Join(root, "nota.pdf"), time.Now())

	select {
	case p := <-events:
		if filepath.Base(p) != "nota.pdf" {
			t.Fatalf("unexpected event %q", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for watch event")
	}
}
