// Package signaling implements Pingo's UDP message bus: chat relay, group
// state, profile updates, and WebRTC-style session negotiation, guarded by
// an address-binding anti-spoof rule.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const (
	// DefaultPort is the preferred Signaling UDP port (spec.md §4.4/§6).
	DefaultPort = 45678

	maxPacketSize = 64 * 1024
	readTimeout   = 10 * time.Millisecond
)

// ErrPeerNotFound is returned by SendMessage when no address binding
// exists for the destination device id.
var ErrPeerNotFound = errors.New("signaling: peer not found")

// Manager owns the Signaling socket, peer table, and event channel.
type Manager struct {
	identity string
	logger   *slog.Logger
	metrics  MetricsReporter

	conn  *net.UDPConn
	port  int
	peers *peerTable

	events chan Event
}

// New binds the Signaling socket on DefaultPort, falling back to an
// OS-assigned ephemeral port if the preferred one is unavailable.
func New(localDeviceID string, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, port, err := bindPreferredOrEphemeral(DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("signaling: new manager: %w", err)
	}

	m := &Manager{
		identity: localDeviceID,
		logger:   logger.With(slog.String("component", "signaling")),
		metrics:  noopMetrics{},
		conn:     conn,
		port:     port,
		peers:    newPeerTable(),
		events:   make(chan Event, eventChannelCapacity),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func bindPreferredOrEphemeral(preferred int) (*net.UDPConn, int, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: preferred})
	if err == nil {
		return conn, preferred, nil
	}

	conn, err = net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, 0, fmt.Errorf("listen udp (ephemeral fallback): %w", err)
	}
	return conn, conn.LocalAddr().(*net.UDPAddr).Port, nil
}

// Port returns the UDP port actually bound.
func (m *Manager) Port() int {
	return m.port
}

// Run reads and dispatches Signaling packets until ctx is cancelled.
// Matches spec.md §5's per-subsystem-thread model: a single background
// listener, cancelled by observing ctx at each read timeout.
func (m *Manager) Run(ctx context.Context) error {
	buf := make([]byte, maxPacketSize)

	for {
		select {
		case <-ctx.Done():
			m.conn.Close()
			close(m.events)
			return nil
		default:
		}

		if err := m.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			m.conn.Close()
			close(m.events)
			return fmt.Errorf("signaling: set read deadline: %w", err)
		}

		n, src, err := m.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-ctx.Done():
				m.conn.Close()
				close(m.events)
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
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.logger.Debug("dropped malformed signaling packet", slog.String("error", err.Error()))
		m.metrics.IncSignalingDropped(dropReasonMalformed)
		return
	}

	if !knownTypes[msg.Type] {
		m.logger.Debug("dropped signaling packet with unknown type", slog.String("type", string(msg.Type)))
		m.metrics.IncSignalingDropped(dropReasonUnknownType)
		return
	}

	if msg.From == "" || msg.From == m.identity {
		return
	}

	if !m.peers.bindFromPacket(msg.From, src) {
		m.logger.Warn("anti-spoof: dropped packet from mismatched address",
			slog.String("from", msg.From), slog.String("src", src.String()))
		m.metrics.IncAntiSpoofDrops()
		m.metrics.IncSignalingDropped(dropReasonAntiSpoof)
		return
	}

	m.metrics.IncSignalingReceived(string(msg.Type))
	m.emit(Event{Message: msg, FromIP: src.IP.String(), FromPort: src.Port})
}

// RegisterPeer creates or replaces the address binding for deviceID. This
// is the explicit register_peer operation: trusted callers (typically the
// Orchestrator, acting on a Discovery event) may rebind an address.
func (m *Manager) RegisterPeer(deviceID, ip string, port int) {
	m.peers.register(deviceID, &net.UDPAddr{IP: net.ParseIP(ip), Port: port})
}

// HasPeer reports whether a binding exists for deviceID.
func (m *Manager) HasPeer(deviceID string) bool {
	_, ok := m.peers.lookup(deviceID)
	return ok
}

// SendMessage delivers msg to msg.To. Returns ErrPeerNotFound if no
// binding exists; callers are expected to RegisterPeer from Discovery and
// retry once before surfacing the failure (spec.md §4.7 relay_chat_message).
func (m *Manager) SendMessage(msg Message) error {
	addr, ok := m.peers.lookup(msg.To)
	if !ok {
		return fmt.Errorf("send to %s: %w", msg.To, ErrPeerNotFound)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal signaling message: %w", err)
	}

	if _, err := m.conn.WriteToUDP(body, addr); err != nil {
		return fmt.Errorf("send to %s at %s: %w", msg.To, addr, err)
	}
	m.metrics.IncSignalingSent(string(msg.Type))
	return nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
