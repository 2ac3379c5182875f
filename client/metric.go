package client

import (
	"errors"
	"sync/atomic"

	"github.com/arloliu/go-asc/barcode"
	"github.com/arloliu/go-asc/poller"
	"github.com/arloliu/go-asc/trajectory"
	"github.com/arloliu/go-asc/transport"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the metrics of the client components.
type Metrics struct {
	Status     *transport.Metrics
	Command    *transport.Metrics
	Poller     *poller.Metrics
	Trajectory *trajectory.Metrics
	Barcode    *barcode.Metrics
}

// Metrics returns the live metrics of the client components.
func (c *Client) Metrics() Metrics {
	return Metrics{
		Status:     c.statusConn.Metrics(),
		Command:    c.commandConn.Metrics(),
		Poller:     c.poller.Metrics(),
		Trajectory: c.trajectories.Metrics(),
		Barcode:    c.barcodes.Metrics(),
	}
}

const namespace = "asc"

func counter(name, help string, labels prometheus.Labels, v *atomic.Uint64) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, func() float64 {
		return float64(v.Load())
	})
}

func gauge(name, help string, labels prometheus.Labels, v *atomic.Int32) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	}, func() float64 {
		return float64(v.Load())
	})
}

// Collectors returns prometheus collectors reading the client metrics.
func (c *Client) Collectors() []prometheus.Collector {
	m := c.Metrics()
	labels := prometheus.Labels{"host": c.cfg.host}

	collectors := make([]prometheus.Collector, 0, 32)
	for channel, tm := range map[string]*transport.Metrics{"status": m.Status, "command": m.Command} {
		l := prometheus.Labels{"host": c.cfg.host, "channel": channel}
		collectors = append(collectors,
			counter("transport_requests_total", "Frames written to the controller.", l, &tm.RequestCount),
			counter("transport_replies_total", "Reply frames read from the controller.", l, &tm.ReplyCount),
			counter("transport_timeouts_total", "Requests without a reply in time.", l, &tm.TimeoutCount),
			counter("transport_protocol_errors_total", "Malformed, partial or oversized reply frames.", l, &tm.ProtocolErrCount),
			counter("transport_connection_errors_total", "Dial, write and read failures.", l, &tm.ConnErrCount),
			counter("transport_dials_total", "Successful dials.", l, &tm.DialCount),
			counter("transport_drained_bytes_total", "Stray bytes discarded before requests.", l, &tm.DrainedBytes),
			gauge("transport_connected", "1 while the channel socket is open.", l, &tm.Connected),
		)
	}

	collectors = append(collectors,
		counter("poller_cycles_total", "Status poll cycles run.", labels, &m.Poller.CycleCount),
		counter("poller_failures_total", "Poll cycles that published nothing.", labels, &m.Poller.FailureCount),
		counter("poller_published_total", "Status snapshots published.", labels, &m.Poller.PublishCount),
		counter("poller_partial_total", "Published snapshots with decode faults.", labels, &m.Poller.PartialCount),
		counter("poller_reconnects_total", "Status channel reconnect attempts.", labels, &m.Poller.ReconnectCount),
		gauge("poller_consecutive_failures", "Current run of failed poll cycles.", labels, &m.Poller.ConsecutiveFailures),

		counter("trajectory_submitted_total", "Trajectories acknowledged by the controller.", labels, &m.Trajectory.SubmitCount),
		counter("trajectory_busy_total", "Submissions refused while a run was active.", labels, &m.Trajectory.BusyCount),
		counter("trajectory_rejected_total", "Trajectories refused by the controller.", labels, &m.Trajectory.RejectCount),
		counter("trajectory_completed_total", "Runs that completed.", labels, &m.Trajectory.CompletedCount),
		counter("trajectory_faulted_total", "Runs that faulted.", labels, &m.Trajectory.FaultedCount),
		counter("trajectory_timed_out_total", "Runs that timed out.", labels, &m.Trajectory.TimedOutCount),
		gauge("trajectory_active", "1 while a run holds the controller.", labels, &m.Trajectory.Active),

		counter("barcode_hits_total", "Barcode resolutions served from the cache.", labels, &m.Barcode.HitCount),
		counter("barcode_misses_total", "Barcode resolutions that needed the controller.", labels, &m.Barcode.MissCount),
		counter("barcode_queries_total", "Datamatrix table queries sent.", labels, &m.Barcode.QueryCount),
		counter("barcode_query_errors_total", "Failed datamatrix table queries.", labels, &m.Barcode.QueryErrCount),
		counter("barcode_not_found_total", "Codes no puck carried.", labels, &m.Barcode.NotFoundCount),
	)

	return collectors
}

// RegisterMetrics registers the client metrics with reg.
func (c *Client) RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		return errors.New("registerer is nil")
	}

	for _, collector := range c.Collectors() {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}
