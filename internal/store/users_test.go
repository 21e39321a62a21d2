package store_test

import (
	"database/sql"
	"testing"

	"github.com/pingonet/pingo-core/internal/store"
)

func TestUpsertPeerAsUserCoalescesPublicKey(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	pk := sql.NullString{String: "pubkey-a", Valid: true}
	if err := s.UpsertPeerAsUser("alice", "Alice", pk); err != nil {
		t.Fatalf("UpsertPeerAsUser() error = %v", err)
	}

	// Second upsert with no pubkey must not erase the stored one.
	if err := s.UpsertPeerAsUser("alice", "Alice Renamed", sql.NullString{}); err != nil {
		t.Fatalf("UpsertPeerAsUser() error = %v", err)
	}

	got, err := s.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Username != "Alice Renamed" {
		t.Errorf("Username = %q, want %q", got.Username, "Alice Renamed")
	}
	if !got.PublicKey.Valid || got.PublicKey.String != "pubkey-a" {
		t.Errorf("PublicKey = %+v, want preserved pubkey-a", got.PublicKey)
	}
	if !got.Online {
		t.Error("Online = false, want true after upsert")
	}
}

func TestSetUserAvatarCreatesMinimalRow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if err := s.SetUserAvatar("bob", "Bob", "http://127.0.0.1:18080/file/f1"); err != nil {
		t.Fatalf("SetUserAvatar() error = %v", err)
	}

	got, err := s.GetUser("bob")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !got.AvatarReference.Valid || got.AvatarReference.String != "http://127.0.0.1:18080/file/f1" {
		t.Errorf("AvatarReference = %+v, want the stored URL", got.AvatarReference)
	}
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if _, err := s.GetUser("nobody"); err != store.ErrNoRows {
		t.Errorf("GetUser() error = %v, want ErrNoRows", err)
	}
}

func TestDeleteUserCascadesMessages(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	seedUsers(t, s, "alice", "bob")

	if err := s.CreateMessage(store.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Content: "hi", Type: "text", CreatedAt: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	if err := s.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	msgs, err := s.GetMessagesBetween("alice", "bob", 10)
	if err != nil {
		t.Fatalf("GetMessagesBetween() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("len(GetMessagesBetween()) = %d, want 0 after DeleteUser", len(msgs))
	}
}
