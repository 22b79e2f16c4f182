package analyzer

import (
	"context"
	"testing"

	"github.com/hearthchat/moderation/automod/setstore"
	"github.com/stretchr/testify/assert"
)

func TestURLReputation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	sets := setstore.NewMemSetStore()
	sets.Add(SetSafeDomains, "hearthchat.example")
	sets.Add(SetSuspiciousDomains, "sketchy.example")
	a := NewHeuristicAnalyzer(nil, sets)

	fixtures := []struct {
		url        string
		domain     string
		reputation string
		score      float64
	}{
		{url: "https://github.com/hearthchat/moderation", domain: "github.com", reputation: ReputationSafe, score: 0},
		{url: "https://gist.github.com/abc", domain: "gist.github.com", reputation: ReputationSafe, score: 0},
		{url: "HTTPS://WWW.GitHub.com/", domain: "github.com", reputation: ReputationSafe, score: 0},
		{url: "docs.hearthchat.example/faq", domain: "docs.hearthchat.example", reputation: ReputationSafe, score: 0},
		{url: "https://bit.ly/3xyz", domain: "bit.ly", reputation: ReputationSuspicious, score: 60},
		{url: "http://win-big.xyz/now", domain: "win-big.xyz", reputation: ReputationSuspicious, score: 60},
		{url: "https://cdn.sketchy.example/a.png", domain: "cdn.sketchy.example", reputation: ReputationSuspicious, score: 60},
		{url: "https://free-nitro.gift/claim", domain: "free-nitro.gift", reputation: ReputationMalicious, score: 100},
		{url: "https://blog.example.net/post", domain: "blog.example.net", reputation: ReputationUnknown, score: 30},
		{url: "https://%zz.example.net/", domain: "", reputation: ReputationMalicious, score: 100},
	}

	for _, f := range fixtures {
		info := a.URLReputation(ctx, f.url)
		assert.Equal(f.domain, info.Domain, f.url)
		assert.Equal(f.reputation, info.Reputation, f.url)
		assert.Equal(f.score, info.ReputationScore, f.url)
	}
}

func TestAnalyzeURLsDeduped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	a := testAnalyzer()

	out := a.analyzeURLs(ctx, "see https://github.com/a and https://github.com/a again, or bit.ly/abc")
	assert.Equal(2, len(out))
	assert.Equal(ReputationSafe, out[0].Reputation)
	assert.Equal(ReputationSuspicious, out[1].Reputation)

	assert.Empty(a.analyzeURLs(ctx, "no links here, e.g. none at all"))
}
