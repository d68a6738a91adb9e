package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func openBackends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	bolt, err := NewBoltDB(filepath.Join(dir, "state.db"), nil)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	backends := map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
	t.Cleanup(func() {
		for _, db := range backends {
			db.Close()
		}
	})
	return backends
}

func TestDatabasePutGetDelete(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := db.Put([]byte("k"), []byte("v1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := db.Get([]byte("k"))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != "v1" {
				t.Fatalf("unexpected value %q", got)
			}
			if err := db.Delete([]byte("k")); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestBatchAppliesAllOperations(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Put([]byte("stale"), []byte("x")); err != nil {
				t.Fatalf("put: %v", err)
			}
			batch := db.NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("stale"))
			if batch.Len() != 3 {
				t.Fatalf("expected 3 queued ops, got %d", batch.Len())
			}
			if err := batch.Write(); err != nil {
				t.Fatalf("write: %v", err)
			}
			for key, want := range map[string]string{"a": "1", "b": "2"} {
				got, err := db.Get([]byte(key))
				if err != nil {
					t.Fatalf("get %s: %v", key, err)
				}
				if string(got) != want {
					t.Fatalf("key %s: got %q want %q", key, got, want)
				}
			}
			if _, err := db.Get([]byte("stale")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected stale key removed, got %v", err)
			}
		})
	}
}
