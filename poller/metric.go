package poller

import "sync/atomic"

// Metrics contains atomic counters for a poller.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// CycleCount indicates the number of poll cycles run.
	CycleCount atomic.Uint64
	// FailureCount indicates the number of cycles that published nothing.
	FailureCount atomic.Uint64
	// PublishCount indicates the number of snapshots published.
	PublishCount atomic.Uint64
	// PartialCount indicates the number of published snapshots with decode faults.
	PartialCount atomic.Uint64
	// ReconnectCount indicates the number of reconnect attempts.
	ReconnectCount atomic.Uint64
	// ConsecutiveFailures is the current run of failed cycles.
	ConsecutiveFailures atomic.Int32
}

func (m *Metrics) incCycleCount() {
	m.CycleCount.Add(1)
}

func (m *Metrics) incPublishCount() {
	m.PublishCount.Add(1)
}

func (m *Metrics) incPartialCount() {
	m.PartialCount.Add(1)
}

func (m *Metrics) incReconnectCount() {
	m.ReconnectCount.Add(1)
}

// incFailure records a failed cycle and returns the length of the current run.
func (m *Metrics) incFailure() int {
	m.FailureCount.Add(1)
	return int(m.ConsecutiveFailures.Add(1))
}

func (m *Metrics) resetFailures() {
	m.ConsecutiveFailures.Store(0)
}
