package discovery

import (
	"sync"
	"time"
)

// Peer is the transient Discovery record for a known device.
type Peer struct {
	DeviceID          string
	Username          string
	IP                string
	Port              int
	PublicKey         string
	IsOnline          bool
	lastSeenMonotonic time.Time
}

// peerTable is the reader-writer-locked map of known peers. Writers
// appear only in the listener (on Hello/Bye) and the announcer's
// liveness sweep, matching spec.md §5's "reads dominate" model.
type peerTable struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[string]*Peer)}
}

// upsert inserts or updates a peer record, returning the stored peer and
// whether this device id was previously unknown (i.e. a discovery, not
// an update).
func (t *peerTable) upsert(info PeerInfo, now time.Time) (Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, known := t.peers[info.DeviceID]
	isNew := !known

	p := &Peer{
		DeviceID:          info.DeviceID,
		Username:          info.Username,
		IP:                info.IPAddress,
		Port:              info.Port,
		PublicKey:         info.PublicKey,
		IsOnline:          true,
		lastSeenMonotonic: now,
	}
	if p.PublicKey == "" && existing != nil {
		p.PublicKey = existing.PublicKey
	}
	t.peers[info.DeviceID] = p

	return *p, isNew
}

// markOffline flips a peer's online flag, returning true if it was
// online before the call (i.e. this transition is worth emitting).
func (t *peerTable) markOffline(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[deviceID]
	if !ok || !p.IsOnline {
		return false
	}
	p.IsOnline = false
	return true
}

// get returns a copy of the peer record for deviceID.
func (t *peerTable) get(deviceID string) (Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.peers[deviceID]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// list returns a snapshot of every known peer.
func (t *peerTable) list() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, *p)
	}
	return out
}

// sweep demotes every online peer whose last_seen exceeds timeout and
// returns their device ids, for the caller to emit PeerLost events.
func (t *peerTable) sweep(now time.Time, timeout time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var lost []string
	for id, p := range t.peers {
		if p.IsOnline && now.Sub(p.lastSeenMonotonic) > timeout {
			p.IsOnline = false
			lost = append(lost, id)
		}
	}
	return lost
}

// onlineCount returns the number of peers currently marked online, for
// the PeersOnline gauge.
func (t *peerTable) onlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, p := range t.peers {
		if p.IsOnline {
			n++
		}
	}
	return n
}
