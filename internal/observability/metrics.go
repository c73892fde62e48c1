package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, gauges, and histograms for the
// station agent.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	FusionTier    prometheus.Gauge     // current fused tier in inches
	SensorWet     *prometheus.GaugeVec // label: position={low,mid,high}
	LastCycleTime prometheus.Gauge     // unix seconds of the last completed cycle (heartbeat)

	AlertsFired      *prometheus.CounterVec // label: category
	AlertsSuppressed prometheus.Counter     // qualifying crossings dropped by the cooldown

	SMSSent           prometheus.Counter
	SMSFailed         prometheus.Counter
	BroadcastDuration prometheus.Histogram

	ModemState prometheus.Gauge // numeric session state

	RemoteRequests *prometheus.CounterVec // labels: op={recipients,command,telemetry,result}, outcome={success,error}
}

// NewMetrics creates and registers all agent metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesTotal,
		m.FusionTier,
		m.SensorWet,
		m.LastCycleTime,
		m.AlertsFired,
		m.AlertsSuppressed,
		m.SMSSent,
		m.SMSFailed,
		m.BroadcastDuration,
		m.ModemState,
		m.RemoteRequests,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agos",
			Name:      "cycles_total",
			Help:      "Total completed sampling cycles.",
		}),
		FusionTier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agos",
			Name:      "fusion_tier_inches",
			Help:      "Current fused water-level tier in inches of depth.",
		}),
		SensorWet: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agos",
			Name:      "sensor_wet",
			Help:      "1 when the detector at the given position is submerged.",
		}, []string{"position"}),
		LastCycleTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agos",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last completed sampling cycle.",
		}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agos",
			Name:      "alerts_fired_total",
			Help:      "Alerts emitted by the escalation state machine, by category.",
		}, []string{"category"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agos",
			Name:      "alerts_suppressed_total",
			Help:      "Qualifying tier crossings dropped by the cooldown window.",
		}),
		SMSSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agos",
			Name:      "sms_sent_total",
			Help:      "SMS submissions confirmed by the modem.",
		}),
		SMSFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agos",
			Name:      "sms_failed_total",
			Help:      "SMS submissions that failed or went unconfirmed.",
		}),
		BroadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agos",
			Name:      "broadcast_duration_seconds",
			Help:      "Wall time of a complete multi-recipient broadcast.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		ModemState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agos",
			Name:      "modem_state",
			Help:      "Modem session state as a numeric code (0=uninitialized through 7=failed).",
		}),
		RemoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agos",
			Name:      "remote_requests_total",
			Help:      "Coordination server requests by operation and outcome.",
		}, []string{"op", "outcome"}),
	}
}
