package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/rovlink/message"
	"github.com/opd-ai/rovlink/transport"
)

const namespace = "rovlink"

// Warning kinds used as the "kind" label of rovlink_link_warnings_total.
const (
	KindInvalidFrame = "invalid_frame"
	KindUnknownType  = "unknown_type"
	KindUnmatchedAck = "unmatched_ack"
	KindDisplaced    = "displaced"
	KindHandler      = "handler"
)

// Collector holds the link metrics of one transmitter.
type Collector struct {
	RoundTrip    prometheus.Histogram
	Timeout      prometheus.Gauge
	Resends      prometheus.Counter
	Warnings     *prometheus.CounterVec
	SocketErrors prometheus.Counter
	Status       prometheus.Gauge

	// Rate is labelled by direction (rx, tx) and scope (payload, total).
	Rate *prometheus.GaugeVec

	VehicleUptime prometheus.Gauge
	VehicleLoad   prometheus.Gauge
	VehicleWlan   prometheus.Gauge

	link atomic.Int32
}

// NewCollector creates the link metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		RoundTrip: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "round_trip_seconds",
			Help:      "Round trip time of acknowledged high priority messages",
			Buckets:   []float64{.005, .01, .02, .05, .1, .2, .5, 1, 2},
		}),

		Timeout: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "resend_timeout_seconds",
			Help:      "Current adaptive resend timeout",
		}),

		Resends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "resends_total",
			Help:      "High priority messages resent after a timeout",
		}),

		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "warnings_total",
			Help:      "Non fatal protocol problems by kind",
		}, []string{"kind"}),

		SocketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "socket_errors_total",
			Help:      "Socket read and write failures",
		}),

		Status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "connection_status",
			Help:      "Connection status: 0 unknown, 1 ok, 2 lost",
		}),

		Rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "rate_bytes_per_second",
			Help:      "Network rate over the last reporting interval",
		}, []string{"direction", "scope"}),

		VehicleUptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vehicle",
			Name:      "uptime_seconds",
			Help:      "Vehicle uptime as reported in STATS",
		}),

		VehicleLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vehicle",
			Name:      "load_average",
			Help:      "Vehicle one minute load average as reported in STATS",
		}),

		VehicleWlan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vehicle",
			Name:      "wlan_link_percent",
			Help:      "Vehicle wireless link quality as reported in STATS",
		}),
	}

	reg.MustRegister(
		c.RoundTrip,
		c.Timeout,
		c.Resends,
		c.Warnings,
		c.SocketErrors,
		c.Status,
		c.Rate,
		c.VehicleUptime,
		c.VehicleLoad,
		c.VehicleWlan,
	)
	return c
}

// Instrument returns Events that update the collector and then call the
// matching callback of ev, if any.
func (c *Collector) Instrument(ev transport.Events) transport.Events {
	return transport.Events{
		OnRoundTrip: func(rtt time.Duration) {
			c.RoundTrip.Observe(rtt.Seconds())
			if ev.OnRoundTrip != nil {
				ev.OnRoundTrip(rtt)
			}
		},
		OnTimeoutAdapted: func(d time.Duration) {
			c.Timeout.Set(d.Seconds())
			if ev.OnTimeoutAdapted != nil {
				ev.OnTimeoutAdapted(d)
			}
		},
		OnResent: func(total uint32) {
			c.Resends.Inc()
			if ev.OnResent != nil {
				ev.OnResent(total)
			}
		},
		OnSocketError: func(err error) {
			c.SocketErrors.Inc()
			if ev.OnSocketError != nil {
				ev.OnSocketError(err)
			}
		},
		OnWarning: func(err error) {
			c.Warnings.WithLabelValues(WarningKind(err)).Inc()
			if ev.OnWarning != nil {
				ev.OnWarning(err)
			}
		},
		OnUptime: func(d time.Duration) {
			c.VehicleUptime.Set(d.Seconds())
			if ev.OnUptime != nil {
				ev.OnUptime(d)
			}
		},
		OnLoadAvg: func(v float64) {
			c.VehicleLoad.Set(v)
			if ev.OnLoadAvg != nil {
				ev.OnLoadAvg(v)
			}
		},
		OnWlan: func(v int) {
			c.VehicleWlan.Set(float64(v))
			if ev.OnWlan != nil {
				ev.OnWlan(v)
			}
		},
		OnNetworkRate: func(r transport.NetworkRate) {
			c.Rate.WithLabelValues("rx", "payload").Set(float64(r.PayloadRx))
			c.Rate.WithLabelValues("rx", "total").Set(float64(r.TotalRx))
			c.Rate.WithLabelValues("tx", "payload").Set(float64(r.PayloadTx))
			c.Rate.WithLabelValues("tx", "total").Set(float64(r.TotalTx))
			if ev.OnNetworkRate != nil {
				ev.OnNetworkRate(r)
			}
		},
		OnConnectionStatus: func(s transport.ConnectionStatus) {
			c.Status.Set(float64(s))
			c.link.Store(int32(s))
			if ev.OnConnectionStatus != nil {
				ev.OnConnectionStatus(s)
			}
		},
	}
}

// Health reports the link as unhealthy while it is lost. An unknown link is
// healthy: the peer may simply not be up yet.
func (c *Collector) Health() HealthStatus {
	s := transport.ConnectionStatus(c.link.Load())
	h := HealthStatus{Status: "healthy", Link: s.String(), Timestamp: time.Now()}
	if s == transport.StatusLost {
		h.Status = "unhealthy"
	}
	return h
}

// WarningKind classifies a warning reported through Events.OnWarning.
func WarningKind(err error) string {
	switch {
	case errors.Is(err, message.ErrInvalidFrame):
		return KindInvalidFrame
	case errors.Is(err, transport.ErrUnknownType):
		return KindUnknownType
	case errors.Is(err, transport.ErrUnmatchedAck):
		return KindUnmatchedAck
	case errors.Is(err, transport.ErrDisplaced):
		return KindDisplaced
	default:
		return KindHandler
	}
}
