package discovery

import (
	"testing"
	"time"
)

func TestPeerTableUpsertNewVsUpdate(t *testing.T) {
	t.Parallel()

	pt := newPeerTable()
	now := time.Now()

	_, isNew := pt.upsert(PeerInfo{DeviceID: "a", Username: "Ana", IPAddress: "10.0.0.5", Port: 15353}, now)
	if !isNew {
		t.Fatal("first upsert() isNew = false, want true")
	}

	_, isNew = pt.upsert(PeerInfo{DeviceID: "a", Username: "Ana Renamed", IPAddress: "10.0.0.5", Port: 15353}, now.Add(time.Second))
	if isNew {
		t.Fatal("second upsert() isNew = true, want false")
	}

	p, ok := pt.get("a")
	if !ok || p.Username != "Ana Renamed" {
		t.Errorf("get() = (%+v, %v), want updated username", p, ok)
	}
}

func TestPeerTableUpsertPreservesKnownPublicKey(t *testing.T) {
	t.Parallel()

	pt := newPeerTable()
	now := time.Now()

	pt.upsert(PeerInfo{DeviceID: "a", Username: "Ana", PublicKey: "pk1"}, now)
	pt.upsert(PeerInfo{DeviceID: "a", Username: "Ana"}, now)

	p, _ := pt.get("a")
	if p.PublicKey != "pk1" {
		t.Errorf("PublicKey = %q, want preserved %q", p.PublicKey, "pk1")
	}
}

func TestPeerTableSweepDemotesStalePeers(t *testing.T) {
	t.Parallel()

	pt := newPeerTable()
	base := time.Now()
	pt.upsert(PeerInfo{DeviceID: "a"}, base.Add(-20*time.Second))
	pt.upsert(PeerInfo{DeviceID: "b"}, base)

	lost := pt.sweep(base, 15*time.Second)
	if len(lost) != 1 || lost[0] != "a" {
		t.Fatalf("sweep() = %v, want [a]", lost)
	}

	pa, _ := pt.get("a")
	if pa.IsOnline {
		t.Error("peer a still online after sweep")
	}
	pb, _ := pt.get("b")
	if !pb.IsOnline {
		t.Error("peer b incorrectly demoted by sweep")
	}
}

func TestPeerTableMarkOfflineIsIdempotent(t *testing.T) {
	t.Parallel()

	pt := newPeerTable()
	pt.upsert(PeerInfo{DeviceID: "a"}, time.Now())

	if !pt.markOffline("a") {
		t.Fatal("markOffline() = false on first call, want true")
	}
	if pt.markOffline("a") {
		t.Fatal("markOffline() = true on second call, want false (already offline)")
	}
}

func TestPeerTableOnlineCount(t *testing.T) {
	t.Parallel()

	pt := newPeerTable()
	now := time.Now()
	pt.upsert(PeerInfo{DeviceID: "a"}, now)
	pt.upsert(PeerInfo{DeviceID: "b"}, now)
	pt.markOffline("b")

	if got := pt.onlineCount(); got != 1 {
		t.Errorf("onlineCount() = %d, want 1", got)
	}
}
