package discovery

// MetricsReporter receives Discovery subsystem counters. A Manager never
// holds a nil MetricsReporter: WithMetrics falls back to noopMetrics when
// given nil, so call sites never need to guard their own calls.
type MetricsReporter interface {
	IncPresenceSent()
	IncPresenceReceived(msgType string)
	IncPresenceDropped()
	IncPeersLost()
}

type noopMetrics struct{}

func (noopMetrics) IncPresenceSent()                   {}
func (noopMetrics) IncPresenceReceived(msgType string) {}
func (noopMetrics) IncPresenceDropped()                {}
func (noopMetrics) IncPeersLost()                      {}

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
