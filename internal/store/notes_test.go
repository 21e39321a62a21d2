package store_test

import (
	"database/sql"
	"testing"

	"github.com/pingonet/pingo-core/internal/store"
)

func TestNoteLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	n := store.Note{
		ID: "n1", Title: "Groceries", Content: "milk, eggs",
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
	if err := s.CreateNote(n); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}

	if err := s.UpdateNote("n1", "Groceries v2", "milk, eggs, bread", sql.NullString{String: "blue", Valid: true}, sql.NullString{}); err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if err := s.PinNote("n1", true); err != nil {
		t.Fatalf("PinNote() error = %v", err)
	}

	notes, err := s.GetNotes()
	if err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len(GetNotes()) = %d, want 1", len(notes))
	}
	if notes[0].Title != "Groceries v2" || !notes[0].Pinned {
		t.Errorf("note = %+v, want updated title and pinned=true", notes[0])
	}

	if err := s.DeleteNote("n1"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	notes, err = s.GetNotes()
	if err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("len(GetNotes()) = %d, want 0 after delete", len(notes))
	}
}

func TestGetNotesOrdersPinnedFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if err := s.CreateNote(store.Note{ID: "a", Title: "A", Content: "x", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if err := s.CreateNote(store.Note{ID: "b", Title: "B", Content: "x", CreatedAt: "2026-01-02T00:00:00Z", UpdatedAt: "2026-01-02T00:00:00Z"}); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if err := s.PinNote("a", true); err != nil {
		t.Fatalf("PinNote() error = %v", err)
	}

	notes, err := s.GetNotes()
	if err != nil {
		t.Fatalf("GetNotes() error = %v", err)
	}
	if len(notes) != 2 || notes[0].ID != "a" {
		t.Errorf("GetNotes()[0].ID = %q, want pinned note %q first", notes[0].ID, "a")
	}
}
