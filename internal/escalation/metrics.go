package escalation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slawatch"

var (
	escalationsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "triggered_total",
			Help:      "Total escalations triggered",
		},
		[]string{"breach_type"},
	)

	ticketsAtRisk = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "tickets_at_risk",
			Help:      "Open tickets within the risk window of a deadline, as of the last scan",
		},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full scheduler scan",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	scannedTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "scanned_tickets_total",
			Help:      "Total tickets evaluated by the scheduler",
		},
	)
)

func recordEscalation(breachType string) {
	escalationsTriggered.WithLabelValues(breachType).Inc()
}

func recordScan(count int, atRisk int, duration time.Duration) {
	scannedTickets.Add(float64(count))
	ticketsAtRisk.Set(float64(atRisk))
	scanDuration.Observe(duration.Seconds())
}
