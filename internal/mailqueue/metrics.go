package mailqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mailroom"

var (
	queueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "size",
			Help:      "Number of queue items by status",
		},
		[]string{"status"},
	)

	emailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "emails_total",
			Help:      "Total emails processed by type and outcome",
		},
		[]string{"email_type", "outcome"},
	)

	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "send_duration_seconds",
			Help:      "Time spent in the send API per email",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"email_type"},
	)

	itemsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "claimed_total",
			Help:      "Total items claimed from the queue before send attempt",
		},
	)

	itemsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "recovered_total",
			Help:      "Total stale processing items returned to pending",
		},
	)
)

func recordEmailOutcome(emailType EmailType, outcome string) {
	emailsProcessed.WithLabelValues(string(emailType), outcome).Inc()
}

func recordSendDuration(emailType EmailType, d time.Duration) {
	sendDuration.WithLabelValues(string(emailType)).Observe(d.Seconds())
}

func recordClaimed(count int) {
	itemsClaimed.Add(float64(count))
}

func recordRecovered(count int64) {
	itemsRecovered.Add(float64(count))
}

// RecordQueueStats updates queue size gauges.
func RecordQueueStats(stats *QueueStats) {
	queueSize.WithLabelValues(string(QueueStatusPending)).Set(float64(stats.Pending))
	queueSize.WithLabelValues(string(QueueStatusProcessing)).Set(float64(stats.Processing))
	queueSize.WithLabelValues(string(QueueStatusSent)).Set(float64(stats.Sent))
	queueSize.WithLabelValues(string(QueueStatusFailed)).Set(float64(stats.Failed))
}
