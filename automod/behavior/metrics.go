package behavior

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clustersCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_clusters_created",
	Help: "Number of content clusters created",
})

var duplicatesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_duplicates_detected",
	Help: "Number of messages matched as duplicates, by cluster type",
}, []string{"type"})

var ruleTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_adaptive_rule_triggers",
	Help: "Number of times each adaptive rule matched",
}, []string{"rule"})

var ruleFeedback = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_adaptive_rule_feedback",
	Help: "Moderator feedback applied to adaptive rules, by verdict",
}, []string{"verdict"})

var rulesDeactivated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_adaptive_rules_deactivated",
	Help: "Number of adaptive rules deactivated, by reason",
}, []string{"reason"})

var patternCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_behavior_pattern_lookups",
	Help: "Behavior pattern cache lookups, by result",
}, []string{"result"})
