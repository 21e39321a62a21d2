package store

import (
	"database/sql"
	"fmt"
)

// User mirrors the User entity: a known peer or the local user itself.
type User struct {
	ID              string
	Username        string
	DeviceID        string
	PublicKey       sql.NullString
	AvatarReference sql.NullString
	Bio             sql.NullString
	Designation     sql.NullString
	LastSeen        sql.NullString
	Online          bool
	CreatedAt       string
}

// UpsertPeerAsUser inserts a new user row for id if absent, or updates an
// existing one: username is overwritten, pubKey is coalesced (a known
// public key is never overwritten with null), and the row is marked
// online with a refreshed last_seen.
func (s *Store) UpsertPeerAsUser(id, username string, pubKey sql.NullString) error {
	defer s.timeOp("upsert_peer_as_user")()
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	_, err := s.db.Exec(`
		INSERT INTO users (id, username, device_id, public_key, online, last_seen, created_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			public_key = COALESCE(excluded.public_key, users.public_key),
			online = 1,
			last_seen = excluded.last_seen
	`, id, username, id, pubKey, ts, ts)
	if err != nil {
		return fmt.Errorf("store: upsert peer as user: %w", err)
	}
	return nil
}

// SetUserOffline marks a user offline, refreshing last_seen. Used by
// Discovery's liveness sweep via the orchestrator.
func (s *Store) SetUserOffline(id string) error {
	defer s.timeOp("set_user_offline")()
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE users SET online = 0, last_seen = ? WHERE id = ?`, now(), id)
	if err != nil {
		return fmt.Errorf("store: set user offline: %w", err)
	}
	return nil
}

// SetUserAvatar inserts a minimal row for id if absent (INSERT OR IGNORE),
// then updates avatar_reference to url.
func (s *Store) SetUserAvatar(id, username, url string) error {
	defer s.timeOp("set_user_avatar")()
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	if _, err := s.db.Exec(`
		INSERT OR IGNORE INTO users (id, username, device_id, online, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, id, username, id, ts); err != nil {
		return fmt.Errorf("store: set user avatar (insert): %w", err)
	}

	if _, err := s.db.Exec(`UPDATE users SET avatar_reference = ? WHERE id = ?`, url, id); err != nil {
		return fmt.Errorf("store: set user avatar (update): %w", err)
	}
	return nil
}

// UpdateUsername updates a user's display name, inserting a minimal row
// if the user is not yet known.
func (s *Store) UpdateUsername(id, username string) error {
	defer s.timeOp("update_username")()
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	if _, err := s.db.Exec(`
		INSERT INTO users (id, username, device_id, online, created_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username
	`, id, username, id, ts); err != nil {
		return fmt.Errorf("store: update username: %w", err)
	}
	return nil
}

// GetUser returns the user row for id, or ErrNoRows if absent.
func (s *Store) GetUser(id string) (User, error) {
	defer s.timeOp("get_user")()
	s.mu.Lock()
	defer s.mu.Unlock()

	var u User
	err := s.db.QueryRow(`
		SELECT id, username, device_id, public_key, avatar_reference, bio, designation, last_seen, online, created_at
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.DeviceID, &u.PublicKey, &u.AvatarReference, &u.Bio, &u.Designation, &u.LastSeen, &u.Online, &u.CreatedAt)
	if isNoRows(err) {
		return User{}, ErrNoRows
	}
	if err != nil {
		return User{}, fmt.Errorf("store: get user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user and every direct message naming them as
// sender or receiver; the messages are deleted explicitly before the user
// row. Group membership rows for the user are not removed.
func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM messages WHERE sender_id = ? OR receiver_id = ?`, id, id); err != nil {
		return fmt.Errorf("store: delete user messages: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	return nil
}
