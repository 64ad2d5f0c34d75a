package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRoundTrip_Memory(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer store.Close()

	value, err := store.Load(ctx, "conversations")
	if err != nil || value != nil {
		t.Fatalf("first run Load = %q, %v", value, err)
	}

	for _, v := range []string{`[]`, `[{"id":"c1"}]`} {
		if err := store.Save(ctx, "conversations", []byte(v)); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	value, err = store.Load(ctx, "conversations")
	if err != nil || string(value) != `[{"id":"c1"}]` {
		t.Errorf("Load = %q, %v", value, err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aichat.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "active", []byte(`"c1"`)); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	value, err := reopened.Load(ctx, "active")
	if err != nil || string(value) != `"c1"` {
		t.Errorf("Load = %q, %v", value, err)
	}
}
