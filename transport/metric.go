package transport

import "sync/atomic"

// Metrics contains atomic counters for a transport.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// RequestCount indicates the number of frames written.
	RequestCount atomic.Uint64
	// ReplyCount indicates the number of reply frames read.
	ReplyCount atomic.Uint64
	// TimeoutCount indicates the number of requests that got no reply in time.
	TimeoutCount atomic.Uint64
	// ProtocolErrCount indicates the number of malformed or partial frames.
	ProtocolErrCount atomic.Uint64
	// ConnErrCount indicates the number of dial, write and read failures.
	ConnErrCount atomic.Uint64
	// DialCount indicates the number of successful dials.
	DialCount atomic.Uint64
	// DrainedBytes indicates the number of stray bytes discarded before requests.
	DrainedBytes atomic.Uint64
	// Connected is 1 while a socket is open.
	Connected atomic.Int32
}

func (m *Metrics) incRequestCount() {
	m.RequestCount.Add(1)
}

func (m *Metrics) incReplyCount() {
	m.ReplyCount.Add(1)
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}

func (m *Metrics) incConnErrCount() {
	m.ConnErrCount.Add(1)
}

func (m *Metrics) incDialCount() {
	m.DialCount.Add(1)
}
