package barcode

import "sync/atomic"

// Metrics contains atomic counters for a barcode cache.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// HitCount indicates the number of resolutions served from the cache.
	HitCount atomic.Uint64
	// MissCount indicates the number of resolutions that needed the controller.
	MissCount atomic.Uint64
	// QueryCount indicates the number of datamatrix table queries sent.
	QueryCount atomic.Uint64
	// QueryErrCount indicates the number of failed datamatrix table queries.
	QueryErrCount atomic.Uint64
	// NotFoundCount indicates the number of codes no puck carried.
	NotFoundCount atomic.Uint64
}

func (m *Metrics) incHitCount() {
	m.HitCount.Add(1)
}

func (m *Metrics) incMissCount() {
	m.MissCount.Add(1)
}

func (m *Metrics) incQueryCount() {
	m.QueryCount.Add(1)
}

func (m *Metrics) incQueryErrCount() {
	m.QueryErrCount.Add(1)
}

func (m *Metrics) incNotFoundCount() {
	m.NotFoundCount.Add(1)
}
