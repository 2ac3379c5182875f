package trajectory

import "sync/atomic"

// Metrics contains atomic counters for a trajectory controller.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// SubmitCount indicates the number of trajectories acknowledged by the controller.
	SubmitCount atomic.Uint64
	// BusyCount indicates the number of submissions refused because a run was active.
	BusyCount atomic.Uint64
	// RejectCount indicates the number of trajectories the controller refused.
	RejectCount atomic.Uint64
	// CompletedCount indicates the number of runs that completed.
	CompletedCount atomic.Uint64
	// FaultedCount indicates the number of runs that faulted, rejections included.
	FaultedCount atomic.Uint64
	// TimedOutCount indicates the number of runs that timed out.
	TimedOutCount atomic.Uint64
	// Active is 1 while a run holds the in-flight slot.
	Active atomic.Int32
}

func (m *Metrics) incSubmitCount() {
	m.SubmitCount.Add(1)
}

func (m *Metrics) incBusyCount() {
	m.BusyCount.Add(1)
}

func (m *Metrics) incRejectCount() {
	m.RejectCount.Add(1)
}

func (m *Metrics) incOutcome(state State) {
	switch state {
	case Completed:
		m.CompletedCount.Add(1)
	case Faulted:
		m.FaultedCount.Add(1)
	case TimedOut:
		m.TimedOutCount.Add(1)
	}
}
