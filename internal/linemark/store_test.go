package linemark

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *DirStore {
	t.Helper()
	store := NewDirStore(filepath.Join(t.TempDir(), DefaultNotesDir))
	if err := store.EnsureRoot(); err != nil {
		t.Fatalf("ensure root failed: %v", err)
	}
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	id := HashLine("some annotated line")
	content := "# Summary\n\nbody text\n"
	if err := store.Write(id, content); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := store.Read(id)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != content {
		t.Fatalf("round trip mismatch: wrote %q, read %q", content, got)
	}
}

func TestStoreWriteOverwrites(t *testing.T) {
	store := newTestStore(t)
	id := HashLine("line")
	if err := store.Write(id, "first"); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := store.Write(id, "second"); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	got, err := store.Read(id)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected overwrite to win, got %q", got)
	}
}

func TestStoreReadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Read(HashLine("never written")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDeleteMissing(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete(HashLine("never written")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	id := HashLine("line")
	if err := store.Write(id, "content"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Delete(id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Read(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEnsureRootIdempotent(t *testing.T) {
	store := newTestStore(t)
	id := HashLine("line")
	if err := store.Write(id, "content"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.EnsureRoot(); err != nil {
		t.Fatalf("second ensure root failed: %v", err)
	}
	got, err := store.Read(id)
	if err != nil || got != "content" {
		t.Fatalf("ensure root disturbed contents: %q, %v", got, err)
	}
}

func TestListAll(t *testing.T) {
	store := newTestStore(t)
	want := map[string]string{
		HashLine("alpha"): "note a",
		HashLine("beta"):  "note b",
	}
	for id, content := range want {
		if err := store.Write(id, content); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	// Foreign files in the directory are not annotations.
	if err := os.WriteFile(filepath.Join(store.Root(), "README.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed foreign file failed: %v", err)
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(all))
	}
	for id, content := range want {
		if all[id] != content {
			t.Fatalf("entry %s mismatch: %q", id, all[id])
		}
	}
}

func TestListAllMissingRoot(t *testing.T) {
	store := NewDirStore(filepath.Join(t.TempDir(), "never-created"))
	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("list of absent root should be empty, not fail: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", len(all))
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	id := HashLine("line")
	if err := store.Write(id, "content"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != id {
		t.Fatalf("expected only %s in store dir, got %v", id, entries)
	}
}
