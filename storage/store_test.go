package storage

import (
	"context"
	"errors"
	"testing"
)

// objectStoreTest exercises the ObjectStore contract against any
// implementation.
func objectStoreTest(t *testing.T, store ObjectStore) {
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "project/a", []byte(`{"id":"a"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "project/b", []byte(`{"id":"b"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "history/x", []byte(`{"id":"x"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "project/a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"id":"a"}` {
		t.Errorf("got %s", got)
	}

	// Overwrite
	if err := store.Put(ctx, "project/a", []byte(`{"id":"a2"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _ = store.Get(ctx, "project/a")
	if string(got) != `{"id":"a2"}` {
		t.Errorf("overwrite not applied, got %s", got)
	}

	values, err := store.QueryByPrefix(ctx, "project/")
	if err != nil {
		t.Fatalf("QueryByPrefix failed: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	if string(values[0]) != `{"id":"a2"}` {
		t.Errorf("expected key order, got %s first", values[0])
	}

	if err := store.Delete(ctx, "project/a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "project/a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "project/a"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	objectStoreTest(t, NewMemoryStore())
}

func TestSqliteStoreContract(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("NewSqliteInMemory failed: %v", err)
	}
	defer store.Close()

	objectStoreTest(t, store)
}

func TestSqliteStoreFileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/nested/dir/storyforge.db"

	store, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	ctx := context.Background()
	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	store.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %s", got)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("original")
	if err := store.Put(ctx, "k", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value[0] = 'X'

	got, _ := store.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("stored value was mutated externally: %s", got)
	}
}
