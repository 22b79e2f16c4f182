package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "moderation_decision_duration_sec",
	Help:    "Total duration of moderating one message, by resulting action",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
}, []string{"action"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_decisions",
	Help: "Number of moderation decisions, by action",
}, []string{"action"})

var fallbackCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_fallback_decisions",
	Help: "Number of decisions that fell back to human review, by cause",
}, []string{"reason"})

var actionNewCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_new_actions",
	Help: "Number of moderation actions persisted, by action",
}, []string{"action"})

var actionsExpiredCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_actions_expired",
	Help: "Number of timed actions marked expired",
})

var queueItemCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_queue_items",
	Help: "Number of review queue items created, by kind and priority",
}, []string{"kind", "priority"})

var appealCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_appeals",
	Help: "Number of appeals processed, by outcome",
}, []string{"outcome"})

var trustEventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_trust_events",
	Help: "Number of trust score events applied, by event",
}, []string{"event"})

var reportCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_user_reports",
	Help: "Number of user reports filed, by whether they were upheld at filing",
}, []string{"upheld"})
