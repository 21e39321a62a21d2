package transfer

// MetricsReporter receives Transfers subsystem counters and gauges. A
// Manager never holds a nil MetricsReporter: WithMetrics falls back to
// noopMetrics when given nil, so call sites never need to guard their own
// calls.
type MetricsReporter interface {
	IncTransfersActive(role string)
	DecTransfersActive(role string)
	IncChunksSent()
	IncChunksReceived()
	IncChunksRejected()
	IncTransfersComplete()
}

type noopMetrics struct{}

func (noopMetrics) IncTransfersActive(role string) {}
func (noopMetrics) DecTransfersActive(role string) {}
func (noopMetrics) IncChunksSent()                 {}
func (noopMetrics) IncChunksReceived()             {}
func (noopMetrics) IncChunksRejected()              {}
func (noopMetrics) IncTransfersComplete()           {}

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
