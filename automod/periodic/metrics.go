package periodic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_periodic_task_runs",
	Help: "Number of periodic maintenance ticks, by task and result",
}, []string{"task", "result"})

var taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "moderation_periodic_task_duration",
	Help:    "Duration of periodic maintenance ticks, including retries",
	Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
}, []string{"task"})
