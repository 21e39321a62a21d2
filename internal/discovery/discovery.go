// Package discovery implements Pingo's UDP broadcast presence protocol: a
// single IPv4 socket on port 15353 announcing Hello/Bye packets, and a
// peer table tracking who is online.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPort is the Discovery UDP port (spec.md §4.3/§6).
	DefaultPort = 15353

	announceInterval = 3 * time.Second
	peerTimeout      = 15 * time.Second
	readTimeout      = 500 * time.Millisecond
)

// Identity is the local node's advertised presence.
type Identity struct {
	DeviceID  string
	Username  string
	Port      int
	PublicKey string
}

// Manager owns the Discovery socket, peer table, and event channel.
type Manager struct {
	identity Identity
	logger   *slog.Logger
	metrics  MetricsReporter

	conn   *net.UDPConn
	peers  *peerTable
	events chan Event

	announceEvery time.Duration
	peerTimeoutAt time.Duration
}

// New opens the Discovery socket bound to 0.0.0.0:<port> and returns a
// Manager ready to Run. Pass port 0 to use DefaultPort.
func New(identity Identity, port int, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if port == 0 {
		port = DefaultPort
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := listenUDP(fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("discovery: new manager: %w", err)
	}

	m := &Manager{
		identity:      identity,
		logger:        logger.With(slog.String("component", "discovery")),
		metrics:       noopMetrics{},
		conn:          conn,
		peers:         newPeerTable(),
		events:        make(chan Event, eventChannelCapacity),
		announceEvery: announceInterval,
		peerTimeoutAt: peerTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Run starts the listener and announcer goroutines and blocks until ctx
// is cancelled. On shutdown it sends a single Bye and closes the socket.
// Matches spec.md §5's per-subsystem-thread scheduling model, here
// realized as errgroup-supervised goroutines.
func (m *Manager) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return m.listenLoop(gCtx)
	})
	g.Go(func() error {
		return m.announceLoop(gCtx)
	})

	err := g.Wait()
	m.sendBye()
	m.conn.Close()
	close(m.events)
	return err
}

// Peers returns a snapshot of every known peer.
func (m *Manager) Peers() []Peer {
	return m.peers.list()
}

// Peer returns the known peer record for deviceID, if any.
func (m *Manager) Peer(deviceID string) (Peer, bool) {
	return m.peers.get(deviceID)
}

// OnlineCount returns the number of currently online peers.
func (m *Manager) OnlineCount() int {
	return m.peers.onlineCount()
}

func (m *Manager) listenLoop(ctx context.Context) error {
	buf := make([]byte, maxPacketSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := m.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return fmt.Errorf("discovery: set read deadline: %w", err)
		}

		n, src, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			m.logger.Warn("read failed", slog.String("error", err.Error()))
			continue
		}

		m.handlePacket(buf[:n], src)
	}
}

func (m *Manager) handlePacket(raw []byte, src *net.UDPAddr) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		m.logger.Debug("dropped malformed presence packet", slog.String("error", err.Error()))
		m.metrics.IncPresenceDropped()
		return
	}

	if pkt.Peer.DeviceID == m.identity.DeviceID {
		return
	}

	// The receiver substitutes the UDP source address as authoritative;
	// the sender always advertises 0.0.0.0.
	pkt.Peer.IPAddress = src.IP.String()

	switch pkt.MsgType {
	case MsgHello:
		m.metrics.IncPresenceReceived(string(pkt.MsgType))
		peer, isNew := m.peers.upsert(pkt.Peer, time.Now())
		kind := EventPeerUpdated
		if isNew {
			kind = EventPeerDiscovered
		}
		m.emit(Event{Kind: kind, Peer: peer})
	case MsgBye:
		m.metrics.IncPresenceReceived(string(pkt.MsgType))
		if m.peers.markOffline(pkt.Peer.DeviceID) {
			if peer, ok := m.peers.get(pkt.Peer.DeviceID); ok {
				m.metrics.IncPeersLost()
				m.emit(Event{Kind: EventPeerLost, Peer: peer})
			}
		}
	default:
		m.logger.Debug("dropped presence packet with unknown msg_type", slog.String("msg_type", string(pkt.MsgType)))
		m.metrics.IncPresenceDropped()
	}
}

func (m *Manager) announceLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.announceEvery)
	defer ticker.Stop()

	m.sendHello()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.sendHello()
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	for _, id := range m.peers.sweep(time.Now(), m.peerTimeoutAt) {
		if peer, ok := m.peers.get(id); ok {
			m.metrics.IncPeersLost()
			m.emit(Event{Kind: EventPeerLost, Peer: peer})
		}
	}
}

func (m *Manager) sendHello() {
	m.broadcast(MsgHello)
}

func (m *Manager) sendBye() {
	m.broadcast(MsgBye)
}

func (m *Manager) broadcast(msgType MsgType) {
	pkt := Packet{
		MsgType: msgType,
		Peer: PeerInfo{
			DeviceID:  m.identity.DeviceID,
			Username:  m.identity.Username,
			IPAddress: "0.0.0.0",
			Port:      m.identity.Port,
			PublicKey: m.identity.PublicKey,
			IsOnline:  msgType == MsgHello,
		},
	}

	body, err := json.Marshal(pkt)
	if err != nil {
		m.logger.Error("marshal presence packet", slog.String("error", err.Error()))
		return
	}

	if msgType == MsgHello {
		m.metrics.IncPresenceSent()
	}

	for _, addr := range broadcastAddresses() {
		dst := &net.UDPAddr{IP: net.ParseIP(addr), Port: DefaultPort}
		if _, err := m.conn.WriteToUDP(body, dst); err != nil {
			m.logger.Debug("broadcast send failed", slog.String("addr", addr), slog.String("error", err.Error()))
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
