package engine

import (
	"log/slog"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/cachestore"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/automod/setstore"
	"github.com/hearthchat/moderation/automod/store"
)

// In-memory engine wired with the heuristic analyzer and a single adaptive rule.
func EngineTestFixture() *Engine {
	sets := setstore.NewMemSetStore()
	sets.Add("malicious-domains", "evil.example.com")
	st := store.NewMemStore()
	counters := countstore.NewMemCountStore()
	rules, err := behavior.NewRuleBook([]behavior.AdaptiveFilterRule{
		{ID: "free-nitro", Type: behavior.RuleKeyword, Keywords: []string{"free nitro"}, Confidence: 80, Active: true},
	})
	if err != nil {
		panic(err)
	}
	layer := behavior.NewLayer(
		slog.Default(),
		analyzer.NewHeuristicAnalyzer(slog.Default(), sets),
		cachestore.NewMemCacheStore(100, time.Hour),
		counters,
		st,
		rules,
	)
	return &Engine{
		Logger:   slog.Default(),
		Layer:    layer,
		Store:    st,
		Counters: counters,
		Flags:    flagstore.NewMemFlagStore(),
	}
}
