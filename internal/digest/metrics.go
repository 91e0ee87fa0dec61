package digest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	usersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailroom",
			Subsystem: "digest",
			Name:      "users_total",
			Help:      "Total users evaluated by digest runs, by outcome",
		},
		[]string{"outcome"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mailroom",
			Subsystem: "digest",
			Name:      "run_duration_seconds",
			Help:      "Duration of digest runs",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func recordUserOutcome(outcome string) {
	usersProcessed.WithLabelValues(outcome).Inc()
}

func recordRunDuration(d time.Duration) {
	runDuration.Observe(d.Seconds())
}
