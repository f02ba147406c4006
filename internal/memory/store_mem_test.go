package memory_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/flemzord/sbot/internal/memory"
)

// Compile-time interface guard.
var _ memory.Store = (*memory.InMemoryStore)(nil)

func TestInMemoryStore_SetGet(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	store.Set(memory.Global(), "spare-car", "🚗")

	for range 2 {
		got, ok := store.Get(memory.Global(), "spare-car")
		if !ok || got != "🚗" {
			t.Fatalf("Get() = %v, %v; want 🚗, true", got, ok)
		}
	}

	if _, ok := store.Get(memory.Global(), "missing"); ok {
		t.Error("Get(missing) reported ok")
	}
}

func TestInMemoryStore_ScopesAreIsolated(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	store.Set(memory.Global(), "k", "global")
	store.Set(memory.User("u1"), "k", "user")
	store.Set(memory.Room("u1"), "k", "room")

	tests := []struct {
		scope memory.Scope
		want  string
	}{
		{memory.Global(), "global"},
		{memory.User("u1"), "user"},
		{memory.Room("u1"), "room"},
	}
	for _, tt := range tests {
		got, _ := store.Get(tt.scope, "k")
		if got != tt.want {
			t.Errorf("Get(%s) = %v, want %s", tt.scope, got, tt.want)
		}
	}

	if _, ok := store.Get(memory.User("u2"), "k"); ok {
		t.Error("value leaked into another user's scope")
	}
}

func TestInMemoryStore_Unset(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	store.Set(memory.Global(), "k", 1)
	store.Unset(memory.Global(), "k")
	store.Unset(memory.Global(), "never-set")

	if _, ok := store.Get(memory.Global(), "k"); ok {
		t.Error("key still present after Unset")
	}
	if keys := store.Keys(memory.Global()); len(keys) != 0 {
		t.Errorf("Keys() = %v, want empty", keys)
	}
}

func TestInMemoryStore_Keys(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	for _, k := range []string{"c", "a", "b"} {
		store.Set(memory.Room("r"), k, true)
	}

	if got := store.Keys(memory.Room("r")); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v, want [a b c]", got)
	}
}

func TestInMemoryStore_UpdateNilRemoves(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	store.Set(memory.Global(), "k", "v")
	store.Update(memory.Global(), "k", func(any, bool) any { return nil })

	if _, ok := store.Get(memory.Global(), "k"); ok {
		t.Error("Update returning nil should remove the key")
	}
}

func TestIncrement_Counter(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()
	for want := 1; want <= 3; want++ {
		if got := memory.Increment(store, memory.Global(), "beetlejuice"); got != want {
			t.Fatalf("Increment() = %d, want %d", got, want)
		}
	}

	// Values restored from JSON come back as float64.
	store.Set(memory.Global(), "restored", float64(4))
	if got := memory.Increment(store, memory.Global(), "restored"); got != 5 {
		t.Errorf("Increment(float64 4) = %d, want 5", got)
	}
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()

	store := memory.NewInMemoryStore()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(goroutine int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				memory.Increment(store, memory.Global(), "hits")
				store.Set(memory.User(fmt.Sprint(goroutine)), fmt.Sprint(i), i)
				_ = store.Keys(memory.Global())
			}
		}(g)
	}
	wg.Wait()

	if got, _ := store.Get(memory.Global(), "hits"); got != 500 {
		t.Fatalf("hits = %v, want 500", got)
	}
	if got := len(store.Keys(memory.User("3"))); got != 50 {
		t.Fatalf("user 3 keys = %d, want 50", got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	src := memory.NewInMemoryStore()
	src.Set(memory.Room("r1"), "b", 2)
	src.Set(memory.Global(), "z", "last")
	src.Set(memory.User("u1"), "a", 1)

	entries := src.Snapshot()
	wantOrder := []string{"global/z", "user:u1/a", "room:r1/b"}
	for i, e := range entries {
		if got := e.Scope.String() + "/" + e.Key; got != wantOrder[i] {
			t.Errorf("entry %d = %s, want %s", i, got, wantOrder[i])
		}
	}

	dst := memory.NewInMemoryStore()
	dst.Set(memory.Global(), "stale", true)
	dst.Restore(entries)

	if _, ok := dst.Get(memory.Global(), "stale"); ok {
		t.Error("Restore kept stale entry")
	}
	if v, _ := dst.Get(memory.Room("r1"), "b"); v != 2 {
		t.Errorf("restored room value = %v, want 2", v)
	}
}

func TestParseScope(t *testing.T) {
	t.Parallel()

	for _, s := range []memory.Scope{memory.Global(), memory.User("u:1"), memory.Room("r")} {
		got, err := memory.ParseScope(s.String())
		if err != nil {
			t.Fatalf("ParseScope(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("ParseScope(%q) = %+v, want %+v", s, got, s)
		}
	}

	for _, bad := range []string{"user:", "team:x", "nonsense"} {
		if _, err := memory.ParseScope(bad); !errors.Is(err, memory.ErrInvalidScope) {
			t.Errorf("ParseScope(%q) err = %v, want ErrInvalidScope", bad, err)
		}
	}
}

type fakePersister struct {
	entries []memory.Entry
	saves   int
	err     error
}

func (p *fakePersister) Load(context.Context) ([]memory.Entry, error) {
	return p.entries, p.err
}

func (p *fakePersister) Save(_ context.Context, entries []memory.Entry) error {
	if p.err != nil {
		return p.err
	}
	p.saves++
	p.entries = entries
	return nil
}

func TestSyncer_SkipsUnchangedStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := &fakePersister{entries: []memory.Entry{{Scope: memory.Global(), Key: "k", Value: "v"}}}
	store := memory.NewInMemoryStore()
	s := memory.NewSyncer(store, p, nil)

	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := store.Get(memory.Global(), "k"); v != "v" {
		t.Fatalf("restored value = %v, want v", v)
	}

	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.saves != 0 {
		t.Fatalf("saves = %d after no change, want 0", p.saves)
	}

	store.Set(memory.Global(), "k2", 1)
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.saves != 1 {
		t.Errorf("saves = %d, want 1", p.saves)
	}
	if len(p.entries) != 2 {
		t.Errorf("persisted %d entries, want 2", len(p.entries))
	}
}

func TestSyncer_PropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := memory.NewSyncer(memory.NewInMemoryStore(), &fakePersister{err: boom}, nil)
	if err := s.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Load err = %v, want boom", err)
	}
}
