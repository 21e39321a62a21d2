package orchestrator

import (
	"database/sql"
	"testing"

	"github.com/pingonet/pingo-core/internal/discovery"
	"github.com/pingonet/pingo-core/internal/media"
	"github.com/pingonet/pingo-core/internal/signaling"
	"github.com/pingonet/pingo-core/internal/store"
)

func newTestOrchestrator(t *testing.T, deviceID string) (*Orchestrator, *store.Store, *signaling.Manager, *discovery.Manager) {
	t.Helper()

	st, err := store.Open(t.TempDir() + "/pingo.db")
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	// pingod registers the local user row at startup; direct messages
	// addressed to deviceID need it as their receiver endpoint.
	if err := st.UpdateUsername(deviceID, deviceID); err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}

	disc, err := discovery.New(discovery.Identity{DeviceID: deviceID}, 0, nil)
	if err != nil {
		t.Fatalf("discovery.New() error = %v", err)
	}

	sig, err := signaling.New(deviceID, nil)
	if err != nil {
		t.Fatalf("signaling.New() error = %v", err)
	}

	mediaStore, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("media.NewStore() error = %v", err)
	}

	// mediaPort is deliberately distinct from any AvatarFilePort used in
	// ProfileUpdate test fixtures below, so a regression that synthesizes
	// avatar URLs from the local port instead of the sender's advertised
	// one is caught rather than masked.
	o := New(st, disc, sig, mediaStore, 9999, nil)
	return o, st, sig, disc
}

func TestMediaPortReturnsLocalBoundPort(t *testing.T) {
	t.Parallel()

	o, _, _, _ := newTestOrchestrator(t, "self")
	if got := o.MediaPort(); got != 9999 {
		t.Errorf("MediaPort() = %d, want 9999", got)
	}
}

func TestHandleDiscoveryEventUpsertsUserAndRegistersSignalingPeer(t *testing.T) {
	t.Parallel()

	o, st, sig, _ := newTestOrchestrator(t, "self")

	ev := discovery.Event{
		Kind: discovery.EventPeerDiscovered,
		Peer: discovery.Peer{DeviceID: "peerA", Username: "Ana", IP: "10.0.0.5", Port: 45678},
	}
	o.handleDiscoveryEvent(ev)

	u, err := st.GetUser("peerA")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Username != "Ana" {
		t.Errorf("Username = %q, want Ana", u.Username)
	}
	if !sig.HasPeer("peerA") {
		t.Error("signaling peer was not auto-registered from discovery event")
	}
}

func TestHandleDiscoveryEventLostSetsUserOffline(t *testing.T) {
	t.Parallel()

	o, st, _, _ := newTestOrchestrator(t, "self")
	o.handleDiscoveryEvent(discovery.Event{Kind: discovery.EventPeerDiscovered, Peer: discovery.Peer{DeviceID: "peerA", Username: "Ana"}})
	o.handleDiscoveryEvent(discovery.Event{Kind: discovery.EventPeerLost, Peer: discovery.Peer{DeviceID: "peerA"}})

	u, err := st.GetUser("peerA")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Online {
		t.Error("user still online after PeerLost event")
	}
}

func TestHandleChatMessagePersistsAsDelivered(t *testing.T) {
	t.Parallel()

	o, st, sig, _ := newTestOrchestrator(t, "self")

	other, err := signaling.New("peerA", nil)
	if err != nil {
		t.Fatalf("signaling.New() error = %v", err)
	}
	sig.RegisterPeer("peerA", "127.0.0.1", other.Port())
	other.RegisterPeer("self", "127.0.0.1", sig.Port())

	msg := signaling.Message{
		Type: signaling.TypeChatMessage, From: "peerA", To: "self",
		MessageID: "m1", Content: "hey", CreatedAt: "2026-07-31T00:00:00Z",
	}
	o.handleChatMessage(signaling.Event{Message: msg, FromIP: "127.0.0.1", FromPort: other.Port()})

	stored, err := st.GetMessagesBetween("self", "peerA", 10)
	if err != nil {
		t.Fatalf("GetMessagesBetween() error = %v", err)
	}
	if len(stored) != 1 || !stored[0].IsDelivered {
		t.Fatalf("stored messages = %+v, want one delivered message", stored)
	}

	// The DeliveryAck send itself is best-effort (errors are logged, not
	// propagated); TestSendMessageRoundTripBetweenTwoManagers in the
	// signaling package covers the wire round trip.
}

func TestHandleProfileUpdateWithAvatarURL(t *testing.T) {
	t.Parallel()

	o, st, _, _ := newTestOrchestrator(t, "self")
	if err := st.UpsertPeerAsUser("peerA", "Ana", sql.NullString{}); err != nil {
		t.Fatalf("UpsertPeerAsUser() error = %v", err)
	}

	msg := signaling.Message{Type: signaling.TypeProfileUpdate, From: "peerA", To: "self", Username: "Ana2", AvatarURL: "http://example/avatar.png"}
	o.handleProfileUpdate(signaling.Event{Message: msg})

	u, err := st.GetUser("peerA")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Username != "Ana2" {
		t.Errorf("Username = %q, want Ana2", u.Username)
	}
	if !u.AvatarReference.Valid || u.AvatarReference.String != "http://example/avatar.png" {
		t.Errorf("AvatarReference = %+v, want the given URL", u.AvatarReference)
	}
}

func TestHandleProfileUpdateWithFileIDAndKnownAddressSynthesizesURL(t *testing.T) {
	t.Parallel()

	o, st, _, _ := newTestOrchestrator(t, "self")

	msg := signaling.Message{Type: signaling.TypeProfileUpdate, From: "peerA", To: "self", Username: "Ana", AvatarFileID: "fid1", AvatarFilePort: 18080}
	o.handleProfileUpdate(signaling.Event{Message: msg, FromIP: "10.0.0.5"})

	u, err := st.GetUser("peerA")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	want := "http://10.0.0.5:18080/file/fid1"
	if !u.AvatarReference.Valid || u.AvatarReference.String != want {
		t.Errorf("AvatarReference = %+v, want %q", u.AvatarReference, want)
	}
}

func TestHandleProfileUpdateWithFileIDAndUnknownAddressStoresPlaceholder(t *testing.T) {
	t.Parallel()

	o, st, _, _ := newTestOrchestrator(t, "self")

	msg := signaling.Message{Type: signaling.TypeProfileUpdate, From: "peerA", To: "self", Username: "Ana", AvatarFileID: "fid1", AvatarFilePort: 18080}
	o.handleProfileUpdate(signaling.Event{Message: msg})

	u, err := st.GetUser("peerA")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	want := "filemeta:fid1:18080"
	if !u.AvatarReference.Valid || u.AvatarReference.String != want {
		t.Errorf("AvatarReference = %+v, want placeholder %q", u.AvatarReference, want)
	}
}

func TestHandleGroupChatMessagePersists(t *testing.T) {
	t.Parallel()

	o, st, _, _ := newTestOrchestrator(t, "self")
	if err := st.CreateGroup("g1", "Team"); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	msg := signaling.Message{Type: signaling.TypeGroupChatMessage, From: "peerA", To: "g1", GroupID: "g1", MessageID: "gm1", Content: "hi team"}
	o.handleGroupChatMessage(signaling.Event{Message: msg})

	msgs, err := st.ListGroupMessagesPaginated("g1", "", 10)
	if err != nil {
		t.Fatalf("ListGroupMessagesPaginated() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("group messages = %v, want 1", msgs)
	}
}

func TestRelayChatMessageSucceedsWhenAlreadyBound(t *testing.T) {
	t.Parallel()

	o, _, sig, _ := newTestOrchestrator(t, "self")

	other, err := signaling.New("peerA", nil)
	if err != nil {
		t.Fatalf("signaling.New() error = %v", err)
	}
	sig.RegisterPeer("peerA", "127.0.0.1", other.Port())

	if err := o.RelayChatMessage(signaling.Message{Type: signaling.TypeChatMessage, From: "self", To: "peerA"}); err != nil {
		t.Fatalf("RelayChatMessage() error = %v", err)
	}
}

func TestRelayChatMessageFailsWhenUnknownToBothSignalingAndDiscovery(t *testing.T) {
	t.Parallel()

	o, _, _, _ := newTestOrchestrator(t, "self")

	err := o.RelayChatMessage(signaling.Message{Type: signaling.TypeChatMessage, From: "self", To: "unknown-peer"})
	if err == nil {
		t.Fatal("RelayChatMessage() error = nil, want failure for a peer unknown to both Signaling and Discovery")
	}
}
