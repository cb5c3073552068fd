package sla

import (
	"github.com/haloline/slawatch/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slawatch"

var breachesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sla",
		Name:      "breaches_detected_total",
		Help:      "Total SLA breaches detected, by deadline type",
	},
	[]string{"breach_type"},
)

// recordBreachDetected counts a newly recorded breach. Re-evaluations that
// lose the insert race are not counted.
func recordBreachDetected(bt domain.BreachType) {
	breachesDetected.WithLabelValues(string(bt)).Inc()
}
