package behavior

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/cachestore"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/automod/periodic"
	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/puzpuzpuz/xsync/v3"
)

// Cache name for behavior patterns.
const PatternCacheName = "behavior"

// Flag emitted when content duplicates a known cluster.
const DuplicateFlag = "cluster:duplicate"

var (
	// cached patterns older than this are rebuilt
	PatternTTL = 5 * time.Minute
	// behavior risk above this raises the spam score
	HighBehaviorRisk      = 70.0
	HighBehaviorSpamBump  = 20.0
	SpamClusterDuplicate  = 40.0
	AdaptiveFlagSpamBump  = 15.0
	BehaviorSweepInterval = 5 * time.Minute
	RuleMaintainInterval  = time.Hour
	// neutral trust when the caller supplies none
	DefaultTrustScore = 50.0
)

// Analyzer output enriched with per-user and cross-message signals.
type EnrichedAnalysis struct {
	// Content holds the adjusted scores. RiskScore, RiskLevel and RecommendedAction are re-fused and replace the analyzer's own.
	Content    *analyzer.Result
	Similarity analyzer.Similarity
	// nil when the pattern could not be built
	Behavior         *UserBehaviorPattern
	UserBehaviorRisk float64
	Cluster          ClusterMatch
	AdaptiveFlags    []string
	// a duplicate of content in a cluster labeled or inferred as spam
	DuplicateInSpamCluster bool
}

// The behavioral and adaptive layer. Construct with NewLayer; the zero value is not usable.
type Layer struct {
	Logger   *slog.Logger
	Analyzer analyzer.ContentAnalyzer
	Cache    cachestore.CacheStore
	Counters countstore.CountStore
	History  HistorySource
	Clusters *ClusterStore
	Rules    *RuleBook
	Now      func() time.Time

	// last analysis time per author; drives the pattern sweep
	active *xsync.MapOf[string, time.Time]
}

func NewLayer(logger *slog.Logger, a analyzer.ContentAnalyzer, cache cachestore.CacheStore, counters countstore.CountStore, history HistorySource, rules *RuleBook) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{
		Logger:   logger.With("component", "behavior"),
		Analyzer: a,
		Cache:    cache,
		Counters: counters,
		History:  history,
		Clusters: NewClusterStore(),
		Rules:    rules,
		Now:      time.Now,
		active:   xsync.NewMapOf[string, time.Time](),
	}
}

func (l *Layer) AnalyzeAdvanced(ctx context.Context, text, authorID, language string, actx *analyzer.Context) (*EnrichedAnalysis, error) {
	if actx == nil {
		actx = &analyzer.Context{}
	}
	logger := l.Logger.With("author", authorID, "room", actx.Room)

	res, err := l.Analyzer.Analyze(ctx, text, language, actx)
	if err != nil {
		return nil, err
	}
	now := l.Now()
	trust := DefaultTrustScore
	if actx.TrustScore != nil {
		trust = *actx.TrustScore
	}

	out := EnrichedAnalysis{
		Content:    res,
		Similarity: l.Analyzer.AnalyzeContentSimilarity(text),
	}

	// a missing pattern degrades to zero behavior risk rather than failing the message
	pattern, err := l.UserPattern(ctx, authorID, trust)
	if err != nil {
		logger.Warn("failed to build behavior pattern", "err", err)
	} else {
		out.Behavior = pattern
		out.UserBehaviorRisk = pattern.RiskScore
		res.FlaggedPatterns = append(res.FlaggedPatterns, pattern.Flags()...)
	}

	// an abandoned analysis leaves cluster and rule state untouched
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.active.Store(authorID, now)

	out.Cluster = l.Clusters.Assign(out.Similarity, authorID, res, now)
	if out.Cluster.Duplicate {
		res.FlaggedPatterns = append(res.FlaggedPatterns, DuplicateFlag)
		duplicatesDetected.WithLabelValues(string(out.Cluster.Type)).Inc()
		out.DuplicateInSpamCluster = out.Cluster.Type == ClusterSpam
	}
	if l.Counters != nil {
		if err := l.Counters.IncrementDistinct(ctx, countstore.CounterClusterAuthors, out.Cluster.ClusterID, authorID); err != nil {
			logger.Warn("failed to count cluster author", "cluster", out.Cluster.ClusterID, "err", err)
		}
	}

	if l.Rules != nil {
		out.AdaptiveFlags = l.Rules.Evaluate(NewRuleInput(text, actx.Room, res))
		res.FlaggedPatterns = append(res.FlaggedPatterns, out.AdaptiveFlags...)
	}

	l.adjust(&out)
	res.FlaggedPatterns = helpers.Dedupe(res.FlaggedPatterns)
	logger.Debug("enriched analysis",
		"behaviorRisk", out.UserBehaviorRisk,
		"cluster", out.Cluster.ClusterID,
		"duplicate", out.Cluster.Duplicate,
		"adaptiveFlags", len(out.AdaptiveFlags),
		"risk", res.RiskScore,
	)
	return &out, nil
}

// raises spam for behavioral signals, then re-fuses risk on the analyzer's level scale
func (l *Layer) adjust(out *EnrichedAnalysis) {
	res := out.Content
	if out.UserBehaviorRisk > HighBehaviorRisk {
		res.Spam += HighBehaviorSpamBump
	}
	if out.DuplicateInSpamCluster {
		res.Spam += SpamClusterDuplicate
	}
	res.Spam += AdaptiveFlagSpamBump * float64(len(out.AdaptiveFlags))
	res.Spam = helpers.ClampScore(res.Spam)

	res.RiskScore = helpers.ClampScore(res.Toxicity*0.3 + res.Spam*0.25 + res.Scam*0.25 + out.UserBehaviorRisk*0.2)
	res.RiskLevel = analyzer.LevelForScore(res.RiskScore)
	res.RecommendedAction = analyzer.ActionForLevel(res.RiskLevel)
}

// Returns the author's behavior pattern, from cache when fresh. Risk is always recomputed against the given trust score.
func (l *Layer) UserPattern(ctx context.Context, userID string, trust float64) (*UserBehaviorPattern, error) {
	now := l.Now()
	var p UserBehaviorPattern
	if l.Cache != nil {
		ok, err := cachestore.GetJSON(ctx, l.Cache, PatternCacheName, userID, &p)
		if err != nil {
			l.Logger.Warn("behavior cache read failed", "author", userID, "err", err)
		} else if ok && now.Sub(p.ComputedAt) < PatternTTL {
			patternCacheLookups.WithLabelValues("hit").Inc()
			p.RiskScore = behaviorRisk(&p, trust)
			return &p, nil
		}
	}
	patternCacheLookups.WithLabelValues("miss").Inc()

	built, err := buildPattern(ctx, l.Counters, l.History, userID, trust, now)
	if err != nil {
		return nil, err
	}
	if l.Cache != nil {
		if err := cachestore.SetJSON(ctx, l.Cache, PatternCacheName, userID, built); err != nil {
			l.Logger.Warn("behavior cache write failed", "author", userID, "err", err)
		}
	}
	return built, nil
}

// Applies moderator feedback on an analysis to every adaptive rule that flagged it. Returns the number of rules updated.
//
// Calling this twice for the same analysis counts the feedback twice; callers must deduplicate.
func (l *Layer) LearnFromFeedback(ctx context.Context, analysisID string, action models.ActionKind, wasCorrect bool) (int, error) {
	if l.History == nil {
		return 0, fmt.Errorf("no analysis history configured")
	}
	a, err := l.History.GetAnalysis(ctx, analysisID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("analysis %s: %w", analysisID, err)
		}
		return 0, fmt.Errorf("loading analysis: %w", err)
	}

	verdict := "false-positive"
	if wasCorrect {
		verdict = "confirmed"
	}
	updated := 0
	for _, tag := range a.FlaggedPatterns {
		ruleID, ok := strings.CutPrefix(tag, AdaptiveFlagPrefix)
		if !ok {
			continue
		}
		deactivated, err := l.Rules.Feedback(ruleID, wasCorrect)
		if errors.Is(err, ErrRuleNotFound) {
			l.Logger.Warn("feedback for unknown adaptive rule", "rule", ruleID, "analysis", analysisID)
			continue
		} else if err != nil {
			return updated, err
		}
		updated++
		ruleFeedback.WithLabelValues(verdict).Inc()
		if deactivated {
			l.Logger.Info("adaptive rule deactivated by feedback", "rule", ruleID, "analysis", analysisID, "action", action)
		}
	}
	return updated, nil
}

// Drops cached patterns for authors idle longer than the pattern TTL, and prunes stale clusters.
func (l *Layer) SweepPatterns(ctx context.Context) error {
	now := l.Now()
	var errs []error
	l.active.Range(func(userID string, seen time.Time) bool {
		if now.Sub(seen) < PatternTTL {
			return true
		}
		if l.Cache != nil {
			if err := l.Cache.Purge(ctx, PatternCacheName, userID); err != nil {
				errs = append(errs, err)
				return true
			}
		}
		l.active.Delete(userID)
		return true
	})
	pruned := l.Clusters.Prune(now.Add(-ClusterTTL))
	l.Logger.Debug("behavior sweep", "pruned_clusters", pruned, "active_authors", l.active.Size())
	return errors.Join(errs...)
}

func (l *Layer) MaintainRules(ctx context.Context) error {
	if l.Rules == nil {
		return nil
	}
	for _, id := range l.Rules.Maintain() {
		l.Logger.Info("adaptive rule deactivated by maintenance", "rule", id)
	}
	return nil
}

// Supervised background tasks for the layer.
func (l *Layer) Tasks() []periodic.Task {
	return []periodic.Task{
		{
			Name:       "behavior-sweep",
			Interval:   BehaviorSweepInterval,
			Run:        l.SweepPatterns,
			MaxRetries: 3,
		},
		{
			Name:     "adaptive-rule-maintenance",
			Interval: RuleMaintainInterval,
			Run:      l.MaintainRules,
		},
	}
}
