package store

import (
	"database/sql"
	"fmt"
)

// Message mirrors the direct Message entity.
type Message struct {
	ID          string
	SenderID    string
	ReceiverID  string
	Content     string
	Type        string
	FilePath    sql.NullString
	IsRead      bool
	IsDelivered bool
	CreatedAt   string
}

// CreateMessage inserts a message, ignoring the call entirely if id
// already exists. This makes relay replay idempotent (spec.md I4):
// duplicate deliveries never error and never duplicate the row.
func (s *Store) CreateMessage(m Message) error {
	defer s.timeOp("create_message")()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO messages
			(id, sender_id, receiver_id, content, type, file_path, is_read, is_delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.Type, m.FilePath, m.IsRead, m.IsDelivered, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create message: %w", err)
	}
	return nil
}

// MarkDelivered sets is_delivered on a message.
func (s *Store) MarkDelivered(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE messages SET is_delivered = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: mark delivered: %w", err)
	}
	return nil
}

// MarkRead sets is_read (and, per spec.md invariant 3, is_delivered) on a message.
func (s *Store) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE messages SET is_read = 1, is_delivered = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: mark read: %w", err)
	}
	return nil
}

// GetMessagesBetween returns up to limit most-recent messages between the
// unordered pair (a, b), ordered descending by created_at.
func (s *Store) GetMessagesBetween(a, b string, limit int) ([]Message, error) {
	defer s.timeOp("get_messages_between")()
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, sender_id, receiver_id, content, type, file_path, is_read, is_delivered, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, a, b, b, a, limit)
	if err != nil {
		return nil, fmt.Errorf("store: get messages between: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetMessagesPaginated returns up to limit messages between (a, b) with
// created_at strictly less than before (cursor-based pagination). An
// empty before returns the most recent page.
func (s *Store) GetMessagesPaginated(a, b string, before string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error
	if before == "" {
		rows, err = s.db.Query(`
			SELECT id, sender_id, receiver_id, content, type, file_path, is_read, is_delivered, created_at
			FROM messages
			WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
			ORDER BY created_at DESC
			LIMIT ?
		`, a, b, b, a, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT id, sender_id, receiver_id, content, type, file_path, is_read, is_delivered, created_at
			FROM messages
			WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
				AND created_at < ?
			ORDER BY created_at DESC
			LIMIT ?
		`, a, b, b, a, before, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get messages paginated: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetLastMessages returns, for every peer with at least one message
// involving me, the single most recent message with that peer (spec.md
// I6), computed via ROW_NUMBER() partitioned by the counterpart id.
func (s *Store) GetLastMessages(me string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, sender_id, receiver_id, content, type, file_path, is_read, is_delivered, created_at
		FROM (
			SELECT *,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
					ORDER BY created_at DESC
				) AS rn
			FROM messages
			WHERE sender_id = ? OR receiver_id = ?
		)
		WHERE rn = 1
		ORDER BY created_at DESC
	`, me, me, me)
	if err != nil {
		return nil, fmt.Errorf("store: get last messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// DeleteMessage removes a single message by id.
func (s *Store) DeleteMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete message: %w", err)
	}
	return nil
}

// DeleteAllMessagesWithPeer removes every direct message between me and peer.
func (s *Store) DeleteAllMessagesWithPeer(me, peer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		DELETE FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
	`, me, peer, peer, me)
	if err != nil {
		return fmt.Errorf("store: delete all messages with peer: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Type, &m.FilePath, &m.IsRead, &m.IsDelivered, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan messages: %w", err)
	}
	return out, nil
}
