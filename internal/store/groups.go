package store

import "fmt"

// Group mirrors the Group entity.
type Group struct {
	ID        string
	Name      string
	CreatedAt string
}

// GroupMember mirrors the GroupMember entity.
type GroupMember struct {
	GroupID  string
	UserID   string
	Username string
	Role     string
	JoinedAt string
}

// GroupMessage mirrors the GroupMessage entity.
type GroupMessage struct {
	ID        string
	GroupID   string
	SenderID  string
	Content   string
	Type      string
	CreatedAt string
}

// CreateGroup inserts a new group row. Idempotent on id collision.
func (s *Store) CreateGroup(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR IGNORE INTO groups (id, name, created_at) VALUES (?, ?, ?)`, id, name, now())
	if err != nil {
		return fmt.Errorf("store: create group: %w", err)
	}
	return nil
}

// AddGroupMember inserts or replaces a membership row for a (group, user) pair.
func (s *Store) AddGroupMember(groupID, userID, username, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO group_members (group_id, user_id, username, role, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(group_id, user_id) DO UPDATE SET
			username = excluded.username,
			role = excluded.role
	`, groupID, userID, username, role, now())
	if err != nil {
		return fmt.Errorf("store: add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember deletes a single membership row.
func (s *Store) RemoveGroupMember(groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("store: remove group member: %w", err)
	}
	return nil
}

// ListGroups returns every known group.
func (s *Store) ListGroups() ([]Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, name, created_at FROM groups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListGroupMembers returns every member of a group.
func (s *Store) ListGroupMembers(groupID string) ([]GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT group_id, user_id, username, role, joined_at
		FROM group_members WHERE group_id = ? ORDER BY joined_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("store: list group members: %w", err)
	}
	defer rows.Close()

	var out []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("store: scan group member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateGroupMessage inserts a group message. Idempotent on id collision,
// matching direct-message relay semantics.
func (s *Store) CreateGroupMessage(m GroupMessage) error {
	defer s.timeOp("create_group_message")()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO group_messages (id, group_id, sender_id, content, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.GroupID, m.SenderID, m.Content, m.Type, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create group message: %w", err)
	}
	return nil
}

// ListGroupMessagesPaginated returns up to limit group messages with
// created_at strictly less than before, most recent first.
func (s *Store) ListGroupMessagesPaginated(groupID string, before string, limit int) ([]GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, group_id, sender_id, content, type, created_at
		FROM group_messages WHERE group_id = ?
	`
	args := []any{groupID}
	if before != "" {
		query += " AND created_at < ?"
		args = append(args, before)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list group messages paginated: %w", err)
	}
	defer rows.Close()

	var out []GroupMessage
	for rows.Next() {
		var m GroupMessage
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan group message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteGroup removes a group; foreign-key cascade removes its members
// and messages atomically (spec.md invariant 2).
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM groups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete group: %w", err)
	}
	return nil
}
