package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", "user", "first question"); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "s1", "assistant", "first answer"); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "s1", "user", "second question"); err != nil {
		t.Fatal(err)
	}

	msgs, err := store.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "first question" || msgs[0].Role != "user" {
		t.Errorf("oldest message = %+v", msgs[0])
	}
	if msgs[2].Content != "second question" {
		t.Errorf("newest message = %+v", msgs[2])
	}
}

func TestStore_RecentLimitKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if err := store.Save(ctx, "s1", "user", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := store.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "message 4" || msgs[1].Content != "message 5" {
		t.Errorf("got %q, %q, want the two newest in order", msgs[0].Content, msgs[1].Content)
	}
}

func TestStore_SessionIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", "user", "s1 message"); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "s2", "user", "s2 message"); err != nil {
		t.Fatal(err)
	}

	msgs, err := store.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "s1 message" {
		t.Errorf("s1 transcript = %+v", msgs)
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", "user", "message"); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	n, err := store.Count(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count after clear = %d", n)
	}

	// Clearing again is a no-op.
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
}
