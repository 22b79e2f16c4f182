package behavior

import (
	"context"
	"testing"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/cachestore"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayer(t *testing.T, seed []AdaptiveFilterRule) (*Layer, *store.MemStore) {
	rb, err := NewRuleBook(seed)
	require.NoError(t, err)
	st := store.NewMemStore()
	l := NewLayer(nil,
		analyzer.NewHeuristicAnalyzer(nil, nil),
		cachestore.NewMemCacheStore(1000, time.Hour),
		countstore.NewMemCountStore(),
		st,
		rb,
	)
	return l, st
}

func TestAnalyzeAdvancedDuplicateSpamCluster(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	l, _ := testLayer(t, nil)

	text := "the pizza place downtown has thin crust tonight"
	first, err := l.AnalyzeAdvanced(ctx, text, "alice", "en", &analyzer.Context{Room: "general"})
	require.NoError(err)
	assert.True(first.Cluster.Created)
	assert.False(first.DuplicateInSpamCluster)

	require.NoError(l.Clusters.SetType(first.Cluster.ClusterID, ClusterSpam))

	second, err := l.AnalyzeAdvanced(ctx, text, "bob", "en", &analyzer.Context{Room: "general"})
	require.NoError(err)
	assert.True(second.Cluster.Duplicate)
	assert.True(second.DuplicateInSpamCluster)
	assert.Equal(first.Cluster.ClusterID, second.Cluster.ClusterID)
	assert.Greater(second.Content.Spam, first.Content.Spam)
	assert.Equal(first.Content.Spam+SpamClusterDuplicate, second.Content.Spam)
	assert.True(second.Content.HasFlag(DuplicateFlag))

	authors, err := l.Counters.GetCountDistinct(ctx, countstore.CounterClusterAuthors, first.Cluster.ClusterID, countstore.PeriodTotal)
	require.NoError(err)
	assert.Equal(2, authors)
}

func TestAnalyzeAdvancedRefusesRisk(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	l, _ := testLayer(t, []AdaptiveFilterRule{
		{ID: "pizza", Type: RuleKeyword, Keywords: []string{"pizza"}, Confidence: 80, Active: true},
	})

	out, err := l.AnalyzeAdvanced(ctx, "you are stupid, want pizza?", "alice", "en", nil)
	require.NoError(err)
	assert.Equal([]string{"adaptive:pizza"}, out.AdaptiveFlags)
	assert.True(out.Content.HasFlag("adaptive:pizza"))
	assert.Equal(AdaptiveFlagSpamBump, out.Content.Spam)

	// replaced, not added: toxicity 40 and spam 15 with no behavior risk
	assert.InDelta(40*0.3+15*0.25, out.Content.RiskScore, 0.001)
	assert.Equal(models.SeverityMedium, out.Content.RiskLevel)
	assert.Equal(models.ActionWarn, out.Content.RecommendedAction)
}

// cancels the caller's context once scoring finishes, as an expiring deadline would
type cancellingAnalyzer struct {
	*analyzer.HeuristicAnalyzer
	cancel context.CancelFunc
}

func (a cancellingAnalyzer) Analyze(ctx context.Context, text, language string, actx *analyzer.Context) (*analyzer.Result, error) {
	res, err := a.HeuristicAnalyzer.Analyze(ctx, text, language, actx)
	a.cancel()
	return res, err
}

func TestAnalyzeAdvancedAbandoned(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	l, _ := testLayer(t, []AdaptiveFilterRule{
		{ID: "pizza", Type: RuleKeyword, Keywords: []string{"pizza"}, Confidence: 80, Active: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Analyzer = cancellingAnalyzer{HeuristicAnalyzer: analyzer.NewHeuristicAnalyzer(nil, nil), cancel: cancel}

	out, err := l.AnalyzeAdvanced(ctx, "want pizza tonight?", "alice", "en", nil)
	assert.ErrorIs(err, context.Canceled)
	assert.Nil(out)
	assert.Equal(0, l.Clusters.Len())

	rule, err := l.Rules.Get("pizza")
	require.NoError(err)
	assert.Zero(rule.Triggers)
}

func TestAnalyzeAdvancedBehaviorRisk(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	l, st := testLayer(t, nil)

	for i := 0; i < 40; i++ {
		require.NoError(l.Counters.Increment(ctx, countstore.CounterMessages, "flooder"))
	}
	seedAnalyses(t, st, "flooder", []float64{10, 10, 10, 10, 10}, true)

	trust := 0.0
	out, err := l.AnalyzeAdvanced(ctx, "hello friends", "flooder", "en", &analyzer.Context{TrustScore: &trust})
	require.NoError(err)
	require.NotNil(out.Behavior)
	// 25 + 30 + 20
	assert.Equal(75.0, out.UserBehaviorRisk)
	assert.Equal(HighBehaviorSpamBump, out.Content.Spam)
	assert.True(out.Content.HasFlag("behavior:rapid-posting"))
	assert.InDelta(20*0.25+75*0.2, out.Content.RiskScore, 0.001)

	// cached pattern, risk recomputed for a higher trust score
	trust = 60
	out, err = l.AnalyzeAdvanced(ctx, "hello again", "flooder", "en", &analyzer.Context{TrustScore: &trust})
	require.NoError(err)
	assert.Equal(45.0, out.UserBehaviorRisk)
	assert.Equal(0.0, out.Content.Spam)
}

func TestAnalyzeAdvancedInvalidInput(t *testing.T) {
	assert := assert.New(t)
	l, _ := testLayer(t, nil)

	_, err := l.AnalyzeAdvanced(context.Background(), "   ", "alice", "en", nil)
	assert.ErrorIs(err, analyzer.ErrInvalidInput)
	assert.Equal(0, l.Clusters.Len())
}

func TestLearnFromFeedback(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	l, st := testLayer(t, []AdaptiveFilterRule{
		{ID: "nitro", Type: RuleKeyword, Keywords: []string{"free nitro"}, Confidence: 70, Active: true},
	})

	_, err := l.LearnFromFeedback(ctx, "missing", models.ActionHide, true)
	assert.ErrorIs(err, store.ErrNotFound)

	require.NoError(st.CreateAnalysis(ctx, &models.ModerationAnalysis{
		ID:              "a1",
		AuthorID:        "alice",
		FlaggedPatterns: []string{"scam:free-currency", "adaptive:nitro", "adaptive:gone"},
	}))

	n, err := l.LearnFromFeedback(ctx, "a1", models.ActionHide, true)
	require.NoError(err)
	assert.Equal(1, n)
	r, err := l.Rules.Get("nitro")
	require.NoError(err)
	assert.Equal(72.0, r.Confidence)

	// no guard: each call counts
	for i := 0; i < 3; i++ {
		_, err = l.LearnFromFeedback(ctx, "a1", models.ActionHide, false)
		require.NoError(err)
	}
	r, err = l.Rules.Get("nitro")
	require.NoError(err)
	assert.Equal(int64(3), r.FalsePositives)
	assert.False(r.Active)
}

func TestSweepPatterns(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	l, _ := testLayer(t, nil)

	now := time.Now()
	l.Now = func() time.Time { return now }
	_, err := l.AnalyzeAdvanced(ctx, "good morning", "alice", "en", nil)
	require.NoError(err)

	var p UserBehaviorPattern
	ok, err := cachestore.GetJSON(ctx, l.Cache, PatternCacheName, "alice", &p)
	require.NoError(err)
	assert.True(ok)

	// still active: nothing purged
	require.NoError(l.SweepPatterns(ctx))
	assert.Equal(1, l.Clusters.Len())

	now = now.Add(ClusterTTL + time.Minute)
	require.NoError(l.SweepPatterns(ctx))
	ok, err = cachestore.GetJSON(ctx, l.Cache, PatternCacheName, "alice", &p)
	require.NoError(err)
	assert.False(ok)
	assert.Equal(0, l.Clusters.Len())

	require.NoError(l.MaintainRules(ctx))
	assert.Len(l.Tasks(), 2)
}
