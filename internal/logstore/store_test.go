package logstore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := Open(BackendSQLite, "")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		BackendMemory: NewMemory(),
		BackendSQLite: sqlite,
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, msg := range []string{"first", "second", "third"} {
				rec, err := store.Create(ctx, msg)
				if err != nil {
					t.Fatalf("create %q: %v", msg, err)
				}
				if rec.ID != int64(i+1) || rec.Message != msg || rec.Time.IsZero() {
					t.Fatalf("record %d = %+v", i, rec)
				}
			}
			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 3 || list[0].Message != "first" || list[2].ID != 3 {
				t.Fatalf("list = %+v", list)
			}
		})
	}
}

func TestCreateRequiresMessage(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Create(ctx, ""); !errors.Is(err, ErrMessageRequired) {
				t.Fatalf("Create(\"\") = %v, want ErrMessageRequired", err)
			}
			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if list == nil || len(list) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", list)
			}
		})
	}
}

func TestListReturnsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Create(ctx, "hello")
	list, _ := m.List(ctx)
	list[0].Message = "mutated"
	again, _ := m.List(ctx)
	if again[0].Message != "hello" {
		t.Fatal("List exposed the backing slice")
	}
}

func TestConcurrentCreateKeepsIDsUnique(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.Create(ctx, "x"); err != nil {
						t.Errorf("create: %v", err)
					}
				}()
			}
			wg.Wait()
			list, _ := store.List(ctx)
			for i, rec := range list {
				if rec.ID != int64(i+1) {
					t.Fatalf("record %d has id %d", i, rec.ID)
				}
			}
			if len(list) != 20 {
				t.Fatalf("len = %d", len(list))
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("postgres", ""); err == nil {
		t.Fatal("expected error")
	}
}
