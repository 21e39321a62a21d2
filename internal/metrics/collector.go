// Package pingometrics exposes Prometheus metrics for every Pingo core
// subsystem: Discovery, Signaling, Crypto, Transfers, and Store.
package pingometrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const namespace = "pingo"

// Label names.
const (
	labelMsgType  = "type"
	labelRole     = "role"
	labelReason   = "reason"
	labelOp       = "op"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Pingo Metrics
// -------------------------------------------------------------------------

// Collector holds all Pingo Prometheus metrics.
//
//   - PeersOnline tracks the current size of the Discovery peer table.
//   - Presence* counters track Hello/Bye traffic.
//   - Signaling* counters track the message bus, including anti-spoof drops.
//   - CryptoSessions tracks active Crypto sessions.
//   - Transfers* track chunked-file-transfer throughput and integrity.
//   - StoreOpDuration times Store operations by name.
type Collector struct {
	PeersOnline prometheus.Gauge

	PresenceSent     prometheus.Counter
	PresenceReceived *prometheus.CounterVec
	PresenceDropped  prometheus.Counter
	PeersLost        prometheus.Counter

	SignalingSent       *prometheus.CounterVec
	SignalingReceived   *prometheus.CounterVec
	SignalingDropped    *prometheus.CounterVec
	AntiSpoofDrops      prometheus.Counter

	CryptoSessions prometheus.Gauge

	TransfersActive   *prometheus.GaugeVec
	ChunksSent        prometheus.Counter
	ChunksReceived    prometheus.Counter
	ChunksRejected    prometheus.Counter
	TransfersComplete prometheus.Counter

	StoreOpDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector with all Pingo metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.PeersOnline,
		c.PresenceSent,
		c.PresenceReceived,
		c.PresenceDropped,
		c.PeersLost,
		c.SignalingSent,
		c.SignalingReceived,
		c.SignalingDropped,
		c.AntiSpoofDrops,
		c.CryptoSessions,
		c.TransfersActive,
		c.ChunksSent,
		c.ChunksReceived,
		c.ChunksRejected,
		c.TransfersComplete,
		c.StoreOpDuration,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		PeersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "peers_online",
			Help:      "Number of peers currently considered online in the Discovery peer table.",
		}),
		PresenceSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "presence_sent_total",
			Help:      "Total presence Hello packets broadcast.",
		}),
		PresenceReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "presence_received_total",
			Help:      "Total presence packets received, labeled by msg_type.",
		}, []string{labelMsgType}),
		PresenceDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "presence_dropped_total",
			Help:      "Total presence packets dropped (malformed JSON or unknown msg_type).",
		}),
		PeersLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "peers_lost_total",
			Help:      "Total PeerLost events, from a received Bye or the liveness sweep.",
		}),

		SignalingSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "messages_sent_total",
			Help:      "Total signaling messages sent, labeled by msg_type.",
		}, []string{labelMsgType}),
		SignalingReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "messages_received_total",
			Help:      "Total signaling messages received, labeled by msg_type.",
		}, []string{labelMsgType}),
		SignalingDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "messages_dropped_total",
			Help:      "Total signaling messages dropped, labeled by reason (anti_spoof, malformed, unknown_type).",
		}, []string{labelReason}),
		AntiSpoofDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "anti_spoof_drops_total",
			Help:      "Total packets dropped because the source address did not match the bound peer address.",
		}),

		CryptoSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "sessions",
			Help:      "Number of established Crypto sessions.",
		}),

		TransfersActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "active",
			Help:      "Number of in-progress transfers, labeled by role (sender, receiver).",
		}, []string{labelRole}),
		ChunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "chunks_sent_total",
			Help:      "Total file chunks sent.",
		}),
		ChunksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "chunks_received_total",
			Help:      "Total file chunks accepted by the receiver (checksum verified).",
		}),
		ChunksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "chunks_rejected_total",
			Help:      "Total file chunks rejected due to a base64 decode failure or checksum mismatch.",
		}),
		TransfersComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "completed_total",
			Help:      "Total transfers that completed with a verified whole-file checksum.",
		}),

		StoreOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Store operations, labeled by operation name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{labelOp}),
	}
}

// -------------------------------------------------------------------------
// Discovery
// -------------------------------------------------------------------------

// SetPeersOnline sets the peers-online gauge to the given count.
func (c *Collector) SetPeersOnline(n int) {
	c.PeersOnline.Set(float64(n))
}

// IncPresenceSent increments the presence-sent counter.
func (c *Collector) IncPresenceSent() {
	c.PresenceSent.Inc()
}

// IncPresenceReceived increments the presence-received counter for the given message type.
func (c *Collector) IncPresenceReceived(msgType string) {
	c.PresenceReceived.WithLabelValues(msgType).Inc()
}

// IncPresenceDropped increments the presence-dropped counter.
func (c *Collector) IncPresenceDropped() {
	c.PresenceDropped.Inc()
}

// IncPeersLost increments the peers-lost counter.
func (c *Collector) IncPeersLost() {
	c.PeersLost.Inc()
}

// -------------------------------------------------------------------------
// Signaling
// -------------------------------------------------------------------------

// IncSignalingSent increments the signaling-sent counter for the given message type.
func (c *Collector) IncSignalingSent(msgType string) {
	c.SignalingSent.WithLabelValues(msgType).Inc()
}

// IncSignalingReceived increments the signaling-received counter for the given message type.
func (c *Collector) IncSignalingReceived(msgType string) {
	c.SignalingReceived.WithLabelValues(msgType).Inc()
}

// IncSignalingDropped increments the signaling-dropped counter for the given reason.
func (c *Collector) IncSignalingDropped(reason string) {
	c.SignalingDropped.WithLabelValues(reason).Inc()
}

// IncAntiSpoofDrops increments the anti-spoof-drop counter (spec.md §8 I5).
func (c *Collector) IncAntiSpoofDrops() {
	c.AntiSpoofDrops.Inc()
}

// -------------------------------------------------------------------------
// Crypto
// -------------------------------------------------------------------------

// SetCryptoSessions sets the crypto-sessions gauge to the given count.
func (c *Collector) SetCryptoSessions(n int) {
	c.CryptoSessions.Set(float64(n))
}

// -------------------------------------------------------------------------
// Transfers
// -------------------------------------------------------------------------

// IncTransfersActive increments the active-transfers gauge for the given role.
func (c *Collector) IncTransfersActive(role string) {
	c.TransfersActive.WithLabelValues(role).Inc()
}

// DecTransfersActive decrements the active-transfers gauge for the given role.
func (c *Collector) DecTransfersActive(role string) {
	c.TransfersActive.WithLabelValues(role).Dec()
}

// IncChunksSent increments the chunks-sent counter.
func (c *Collector) IncChunksSent() {
	c.ChunksSent.Inc()
}

// IncChunksReceived increments the chunks-received counter.
func (c *Collector) IncChunksReceived() {
	c.ChunksReceived.Inc()
}

// IncChunksRejected increments the chunks-rejected counter.
func (c *Collector) IncChunksRejected() {
	c.ChunksRejected.Inc()
}

// IncTransfersComplete increments the transfers-completed counter.
func (c *Collector) IncTransfersComplete() {
	c.TransfersComplete.Inc()
}

// -------------------------------------------------------------------------
// Store
// -------------------------------------------------------------------------

// ObserveStoreOp records the duration of a Store operation in seconds.
func (c *Collector) ObserveStoreOp(op string, seconds float64) {
	c.StoreOpDuration.WithLabelValues(op).Observe(seconds)
}
