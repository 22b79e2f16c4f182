package behavior

import (
	"testing"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"

	"github.com/stretchr/testify/assert"
)

func TestHashSimilarity(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		a   string
		b   string
		sim float64
	}{
		{a: "", b: "abc", sim: 0},
		{a: "abc", b: "abc", sim: 100},
		{a: "abc", b: "abcdef", sim: 100},
		{a: "abcd", b: "abXY", sim: 50},
		{a: "abcdefghij", b: "abcdefghXY", sim: 80},
		// a single leading insertion shifts every position
		{a: "abcdef", b: "xabcdef", sim: 0},
	}
	for _, fix := range fixtures {
		assert.InDelta(fix.sim, HashSimilarity(fix.a, fix.b), 0.001, fix.a+" / "+fix.b)
	}
}

func TestClusterAssign(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	cs := NewClusterStore()

	first := cs.Assign(analyzer.Similarity{ContentHash: "h1", SemanticHash: "abcdefghij"}, "alice", nil, now)
	assert.True(first.Created)
	assert.False(first.Duplicate)
	assert.Equal(ClusterUnknown, first.Type)

	// exact repeat: duplicate, same cluster
	dup := cs.Assign(analyzer.Similarity{ContentHash: "h1", SemanticHash: "abcdefghij"}, "bob", nil, now)
	assert.False(dup.Created)
	assert.True(dup.Duplicate)
	assert.Equal(first.ClusterID, dup.ClusterID)

	// exactly 80: updates the nearest cluster without being a duplicate
	near := cs.Assign(analyzer.Similarity{ContentHash: "h2", SemanticHash: "abcdefghXY"}, "carol", nil, now)
	assert.False(near.Created)
	assert.False(near.Duplicate)
	assert.Equal(first.ClusterID, near.ClusterID)
	assert.Equal(1, cs.Len())

	// under 70 against every member: new cluster
	far := cs.Assign(analyzer.Similarity{ContentHash: "h3", SemanticHash: "abcdefQRST"}, "dave", nil, now)
	assert.True(far.Created)
	assert.NotEqual(first.ClusterID, far.ClusterID)
	assert.Equal(2, cs.Len())

	c, err := cs.Get(first.ClusterID)
	assert.NoError(err)
	assert.Equal(3, c.MessageCount)
	assert.Equal(3, c.AuthorCount())
	assert.Equal([]string{"abcdefghij", "abcdefghXY"}, c.SemanticHashes)
	assert.Equal([]string{"h1", "h2"}, c.ContentHashes)
}

func TestClusterEmptySemanticHash(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	cs := NewClusterStore()

	// emoji-only content clusters by exact hash
	a := cs.Assign(analyzer.Similarity{ContentHash: "1111"}, "alice", nil, now)
	b := cs.Assign(analyzer.Similarity{ContentHash: "1111"}, "bob", nil, now)
	c := cs.Assign(analyzer.Similarity{ContentHash: "9999"}, "carol", nil, now)
	assert.True(b.Duplicate)
	assert.Equal(a.ClusterID, b.ClusterID)
	assert.True(c.Created)
}

func TestClusterInference(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	cs := NewClusterStore()
	sim := analyzer.Similarity{ContentHash: "h", SemanticHash: "giveaway crypto free"}

	m := cs.Assign(sim, "alice", &analyzer.Result{Spam: 20, Scam: 90}, now)
	assert.Equal(ClusterSpam, m.Type)
	m = cs.Assign(sim, "bob", &analyzer.Result{Spam: 20, Scam: 70}, now)
	assert.Equal(ClusterSpam, m.Type)

	c, err := cs.Get(m.ClusterID)
	assert.NoError(err)
	assert.InDelta(80.0, c.Confidence, 0.001)

	promo := cs.Assign(analyzer.Similarity{ContentHash: "p", SemanticHash: "shoes sale"}, "carol", &analyzer.Result{Promotional: 60}, now)
	assert.Equal(ClusterPromotional, promo.Type)
}

func TestClusterLabel(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	cs := NewClusterStore()
	sim := analyzer.Similarity{ContentHash: "h", SemanticHash: "morning everyone"}

	m := cs.Assign(sim, "alice", &analyzer.Result{}, now)
	assert.ErrorIs(cs.SetType("missing", ClusterSpam), ErrClusterNotFound)
	assert.NoError(cs.SetType(m.ClusterID, ClusterSpam))

	// labels are not overwritten by inference
	for i := 0; i < 6; i++ {
		m = cs.Assign(sim, "bob", &analyzer.Result{}, now)
	}
	assert.Equal(ClusterSpam, m.Type)
	c, err := cs.Get(m.ClusterID)
	assert.NoError(err)
	assert.True(c.Labeled)
	assert.Equal(100.0, c.Confidence)
}

func TestClusterPrune(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	cs := NewClusterStore()

	old := cs.Assign(analyzer.Similarity{ContentHash: "a", SemanticHash: "old news"}, "alice", nil, now.Add(-48*time.Hour))
	cs.Assign(analyzer.Similarity{ContentHash: "b", SemanticHash: "fresh story"}, "bob", nil, now)

	assert.Equal(1, cs.Prune(now.Add(-ClusterTTL)))
	assert.Equal(1, cs.Len())
	_, err := cs.Get(old.ClusterID)
	assert.ErrorIs(err, ErrClusterNotFound)
}
