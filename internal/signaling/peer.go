package signaling

import (
	"net"
	"sync"
)

// peerRecord is the Signaling peer table entry: a device id bound to a
// transport address, plus optional negotiation state (spec.md §4.4).
type peerRecord struct {
	addr      *net.UDPAddr
	state     string
	sessionID string
}

// peerTable maps device id to its bound Signaling address. Reads dominate
// (spec.md §5); writes happen only on register/bind and state updates.
type peerTable struct {
	mu    sync.RWMutex
	peers map[string]*peerRecord
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[string]*peerRecord)}
}

// register creates or overwrites an explicit binding for deviceID. Used by
// register_peer, driven by a trusted source (Discovery's peer table), so
// unlike bindFromPacket it is allowed to replace an existing address.
func (pt *peerTable) register(deviceID string, addr *net.UDPAddr) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if r, ok := pt.peers[deviceID]; ok {
		r.addr = addr
		return
	}
	pt.peers[deviceID] = &peerRecord{addr: addr}
}

// bindFromPacket implements the anti-spoof invariant (spec.md I5): if
// deviceID is already bound to a different address, the packet is
// rejected and the binding is left untouched. If unbound, the source
// address becomes the binding. Returns false when the packet must be
// dropped.
func (pt *peerTable) bindFromPacket(deviceID string, addr *net.UDPAddr) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	r, ok := pt.peers[deviceID]
	if !ok {
		pt.peers[deviceID] = &peerRecord{addr: addr}
		return true
	}
	if r.addr == nil {
		r.addr = addr
		return true
	}
	return sameUDPAddr(r.addr, addr)
}

func (pt *peerTable) lookup(deviceID string) (*net.UDPAddr, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	r, ok := pt.peers[deviceID]
	if !ok || r.addr == nil {
		return nil, false
	}
	return r.addr, true
}

func (pt *peerTable) setState(deviceID, state string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	r, ok := pt.peers[deviceID]
	if !ok {
		r = &peerRecord{}
		pt.peers[deviceID] = r
	}
	r.state = state
}

func (pt *peerTable) setSessionID(deviceID, sessionID string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	r, ok := pt.peers[deviceID]
	if !ok {
		r = &peerRecord{}
		pt.peers[deviceID] = r
	}
	r.sessionID = sessionID
}

func sameUDPAddr(a, b *net.UDPAddr) bool {
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
