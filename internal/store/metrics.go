package store

import "time"

// MetricsReporter receives Store operation durations. A Store never holds
// a nil MetricsReporter: WithMetrics falls back to noopMetrics when given
// nil, so call sites never need to guard their own calls.
type MetricsReporter interface {
	ObserveStoreOp(op string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveStoreOp(op string, seconds float64) {}

// Option configures optional Store parameters.
type Option func(*Store)

// WithMetrics attaches a MetricsReporter to the Store. If mr is nil, the
// default no-op reporter is used.
func WithMetrics(mr MetricsReporter) Option {
	return func(s *Store) {
		if mr != nil {
			s.metrics = mr
		}
	}
}

// timeOp returns a func to be deferred at the top of an operation; calling
// it records the elapsed wall-clock time against op.
func (s *Store) timeOp(op string) func() {
	start := time.Now()
	return func() {
		s.metrics.ObserveStoreOp(op, time.Since(start).Seconds())
	}
}
