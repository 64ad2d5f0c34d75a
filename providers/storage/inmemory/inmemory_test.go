package inmemory

import (
	"context"
	"sync"
	"testing"
)

func TestLoad_MissingKey(t *testing.T) {
	value, err := New().Load(context.Background(), "absent")
	if err != nil || value != nil {
		t.Errorf("Load = %q, %v; want nil, nil", value, err)
	}
}

func TestSaveLoad_CopiesValues(t *testing.T) {
	store := New()
	ctx := context.Background()

	original := []byte(`[{"id":"c1"}]`)
	if err := store.Save(ctx, "conversations", original); err != nil {
		t.Fatal(err)
	}
	original[0] = 'X'

	loaded, err := store.Load(ctx, "conversations")
	if err != nil {
		t.Fatal(err)
	}
	if string(loaded) != `[{"id":"c1"}]` {
		t.Errorf("stored value was mutated through the caller's slice: %q", loaded)
	}

	loaded[0] = 'Y'
	again, _ := store.Load(ctx, "conversations")
	if again[0] != '[' {
		t.Error("stored value was mutated through a loaded slice")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, "k", []byte("v"))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Load(ctx, "k")
		}()
	}
	wg.Wait()

	if store.Keys() != 1 {
		t.Errorf("Keys = %d, want 1", store.Keys())
	}
}
