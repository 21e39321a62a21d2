package store

import (
	"database/sql"
	"fmt"
)

// Note mirrors the Note entity.
type Note struct {
	ID        string
	Title     string
	Content   string
	Color     sql.NullString
	Pinned    bool
	Category  sql.NullString
	CreatedAt string
	UpdatedAt string
}

// CreateNote inserts a new note row.
func (s *Store) CreateNote(n Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO notes (id, title, content, color, pinned, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Content, n.Color, n.Pinned, n.Category, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create note: %w", err)
	}
	return nil
}

// UpdateNote overwrites title/content/color/category and bumps updated_at.
func (s *Store) UpdateNote(id, title, content string, color, category sql.NullString) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE notes SET title = ?, content = ?, color = ?, category = ?, updated_at = ?
		WHERE id = ?
	`, title, content, color, category, now(), id)
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	return nil
}

// PinNote sets the pinned flag and bumps updated_at, matching the
// `(pinned, updated_at)` index the note list is expected to scan.
func (s *Store) PinNote(id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE notes SET pinned = ?, updated_at = ? WHERE id = ?`, pinned, now(), id)
	if err != nil {
		return fmt.Errorf("store: pin note: %w", err)
	}
	return nil
}

// DeleteNote removes a note by id.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	return nil
}

// GetNotes returns every note, pinned first, most recently updated first.
func (s *Store) GetNotes() ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, title, content, color, pinned, category, created_at, updated_at
		FROM notes ORDER BY pinned DESC, updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: get notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Color, &n.Pinned, &n.Category, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
