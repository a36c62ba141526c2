package bus

import "sync/atomic"

type MetricsSnapshot struct {
	Subscriptions int64
	QueueDepth    int64
	Posted        int64
	Rejected      int64
	Dispatched    int64
	Deliveries    int64
	Failures      int64
	Shutdowns     int64
}

type Metrics struct {
	subscriptions atomic.Int64
	posted        atomic.Int64
	rejected      atomic.Int64
	dispatched    atomic.Int64
	deliveries    atomic.Int64
	failures      atomic.Int64
	shutdowns     atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordSubscription(delta int) {
	m.subscriptions.Add(int64(delta))
}

func (m *Metrics) RecordPosted(delta int) {
	m.posted.Add(int64(delta))
}

func (m *Metrics) RecordRejected(delta int) {
	m.rejected.Add(int64(delta))
}

func (m *Metrics) RecordDispatched(delta int) {
	m.dispatched.Add(int64(delta))
}

func (m *Metrics) RecordDelivery(delta int) {
	m.deliveries.Add(int64(delta))
}

func (m *Metrics) RecordFailure(delta int) {
	m.failures.Add(int64(delta))
}

func (m *Metrics) RecordShutdown(delta int) {
	m.shutdowns.Add(int64(delta))
}

// Snapshot reads every counter. QueueDepth is filled in by the bus.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Subscriptions: m.subscriptions.Load(),
		Posted:        m.posted.Load(),
		Rejected:      m.rejected.Load(),
		Dispatched:    m.dispatched.Load(),
		Deliveries:    m.deliveries.Load(),
		Failures:      m.failures.Load(),
		Shutdowns:     m.shutdowns.Load(),
	}
}
