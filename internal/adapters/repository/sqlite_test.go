package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/grader/internal/domain/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *SQLiteStore, students ...model.Student) {
	t.Helper()
	for _, s := range students {
		if _, err := store.Create(context.Background(), s); err != nil {
			t.Fatalf("seed %s: %v", s.RollNumber, err)
		}
	}
}

func TestSQLiteStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Test empty store
	if count, err := store.Count(ctx); err != nil || count != 0 {
		t.Errorf("expected count 0, got %d (%v)", count, err)
	}

	created, err := store.Create(ctx, model.Student{RollNumber: "R01", Name: "Rohan", Grade: "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected an assigned ID")
	}

	got, err := store.Get(ctx, "R01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != created {
		t.Errorf("expected %+v, got %+v", created, got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Rohan" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestSQLiteStore_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed(t, store, model.Student{RollNumber: "R01", Name: "Rohan", Grade: "A"})

	_, err := store.Create(ctx, model.Student{RollNumber: "R01", Name: "Raman", Grade: "B"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1 after rejected insert, got %d", count)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Update(ctx, model.Student{RollNumber: "nobody", Name: "X", Grade: "A"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed(t, store,
		model.Student{RollNumber: "R01", Name: "Rohan", Grade: "A"},
		model.Student{RollNumber: "R02", Name: "Raman", Grade: "B"},
	)

	updated, err := store.Update(ctx, model.Student{RollNumber: "R02", Name: "Raman", Grade: "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Grade != "C" || updated.ID == 0 {
		t.Errorf("unexpected updated record: %+v", updated)
	}

	if err := store.Delete(ctx, "R01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].RollNumber != "R02" {
		t.Errorf("unexpected list after delete: %+v", list)
	}
}

func TestSQLiteStore_Search(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seed(t, store,
		model.Student{RollNumber: "R01", Name: "Rohan", Grade: "A"},
		model.Student{RollNumber: "R02", Name: "Raman", Grade: "B"},
		model.Student{RollNumber: "R03", Name: "Arnav", Grade: "B"},
		model.Student{RollNumber: "R04", Name: "Aryan", Grade: "A"},
	)

	tests := []struct {
		name   string
		filter model.StudentFilter
		want   []string
	}{
		{"empty filter", model.StudentFilter{}, []string{"R01", "R02", "R03", "R04"}},
		{"name substring", model.StudentFilter{Name: "a"}, []string{"R01", "R02", "R03", "R04"}},
		{"name prefix", model.StudentFilter{Name: "Ra"}, []string{"R02"}},
		{"grade only", model.StudentFilter{Grade: "B"}, []string{"R02", "R03"}},
		{"name and grade", model.StudentFilter{Name: "ar", Grade: "B"}, []string{"R03"}},
		{"wildcard is literal", model.StudentFilter{Name: "%"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Search(ctx, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %+v", tt.want, got)
			}
			for i, s := range got {
				if s.RollNumber != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], s.RollNumber)
				}
			}
		})
	}
}

func TestSQLiteStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "students.db")

	store, err := OpenSQLite(ctx, path, WithMaxOpenConns(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seed(t, store, model.Student{RollNumber: "R01", Name: "Rohan", Grade: "A"})
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if reopened.Path() != path {
		t.Errorf("expected path %s, got %s", path, reopened.Path())
	}
	if got, err := reopened.Get(ctx, "R01"); err != nil || got.Name != "Rohan" {
		t.Errorf("expected persisted student, got %+v (%v)", got, err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}
