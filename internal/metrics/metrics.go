// Package metrics holds the process-wide prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reposage",
		Name:      "webhook_deliveries_total",
		Help:      "Webhook deliveries by event and outcome",
	}, []string{"event", "outcome"})
	AnalysisTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reposage",
		Name:      "analysis_transitions_total",
		Help:      "Analysis run transitions attempted by target status and outcome",
	}, []string{"to", "outcome"})
	QueueJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reposage",
		Name:      "queue_jobs_total",
		Help:      "Queue jobs by outcome",
	}, []string{"outcome"})
	QueueJobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reposage",
		Name:      "queue_job_duration_seconds",
		Help:      "Time spent handling one queue job",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})
)

func init() {
	prometheus.MustRegister(WebhookDeliveries)
	prometheus.MustRegister(AnalysisTransitions)
	prometheus.MustRegister(QueueJobs)
	prometheus.MustRegister(QueueJobDuration)
}

// Outcome renders an error as a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
