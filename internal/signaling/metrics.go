package signaling

// MetricsReporter receives Signaling subsystem counters. A Manager never
// holds a nil MetricsReporter: WithMetrics falls back to noopMetrics when
// given nil, so call sites never need to guard their own calls.
type MetricsReporter interface {
	IncSignalingSent(msgType string)
	IncSignalingReceived(msgType string)
	IncSignalingDropped(reason string)
	IncAntiSpoofDrops()
}

type noopMetrics struct{}

func (noopMetrics) IncSignalingSent(msgType string)     {}
func (noopMetrics) IncSignalingReceived(msgType string) {}
func (noopMetrics) IncSignalingDropped(reason string)   {}
func (noopMetrics) IncAntiSpoofDrops()                  {}

// dropReason labels the signaling-dropped counter (spec.md §7 protocol errors).
const (
	dropReasonMalformed   = "malformed"
	dropReasonUnknownType = "unknown_type"
	dropReasonAntiSpoof   = "anti_spoof"
)

// Option configures optional Manager parameters.
type Option func(*Manager)

// WithMetrics attaches a MetricsReporter to the Manager. If mr is nil, the
// default no-op reporter is used.
func WithMetrics(mr MetricsReporter) Option {
	return func(m *Manager) {
		if mr != nil {
			m.metrics = mr
		}
	}
}
