package behavior

import (
	"errors"
	"sync"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"

	"github.com/google/uuid"
)

type ClusterType string

const (
	ClusterUnknown     ClusterType = "unknown"
	ClusterSpam        ClusterType = "spam"
	ClusterPromotional ClusterType = "promotional"
	ClusterLegitimate  ClusterType = "legitimate"
)

var (
	// above this similarity, content is a duplicate of the cluster
	DuplicateSimilarity = 80.0
	// at or above this similarity, content joins the nearest cluster; below it a new cluster is created
	UpdateSimilarity = 70.0
	// member hashes retained per cluster for comparison
	MaxClusterMembers = 50
	// clusters not seen for this long are dropped by the sweep
	ClusterTTL = 24 * time.Hour
)

var ErrClusterNotFound = errors.New("cluster not found")

// A group of near-duplicate messages. Clusters are updated in place, never merged.
type ContentCluster struct {
	ID             string
	Type           ClusterType
	Confidence     float64
	SemanticHashes []string
	ContentHashes  []string
	FirstSeen      time.Time
	LastSeen       time.Time
	MessageCount   int
	Authors        map[string]bool
	// set when a moderator labeled the cluster; inference no longer changes Type
	Labeled bool

	sumSpam  float64
	sumScam  float64
	sumPromo float64
	sumTox   float64
}

func (c *ContentCluster) AuthorCount() int {
	return len(c.Authors)
}

// Outcome of assigning one message to a cluster. Exactly one of Created or an update happened.
type ClusterMatch struct {
	ClusterID  string
	Similarity float64
	Duplicate  bool
	Created    bool
	Type       ClusterType
}

// In-process cluster state, safe for concurrent use.
//
// Two concurrent near-duplicate messages may both create a cluster for the same content; this is accepted.
type ClusterStore struct {
	lk       sync.Mutex
	clusters map[string]*ContentCluster
}

func NewClusterStore() *ClusterStore {
	return &ClusterStore{
		clusters: make(map[string]*ContentCluster),
	}
}

// Character-position overlap: the count of positions where both strings hold the same byte, over the shorter length, scaled to 0-100.
//
// Fast but low precision; an insertion near the start of either string destroys the overlap.
func HashSimilarity(a, b string) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	same := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(n) * 100
}

func clusterKey(sim analyzer.Similarity) string {
	if sim.SemanticHash != "" {
		return sim.SemanticHash
	}
	// no content words at all (emoji, punctuation); fall back to exact matching
	return sim.ContentHash
}

// Compares the fingerprint with every cluster, then either updates the nearest cluster or creates a new one.
func (s *ClusterStore) Assign(sim analyzer.Similarity, authorID string, res *analyzer.Result, now time.Time) ClusterMatch {
	key := clusterKey(sim)

	s.lk.Lock()
	defer s.lk.Unlock()

	var best *ContentCluster
	bestScore := 0.0
	for _, c := range s.clusters {
		for _, h := range c.SemanticHashes {
			score := HashSimilarity(key, h)
			if score > bestScore || (score == bestScore && best != nil && score > 0 && c.LastSeen.After(best.LastSeen)) {
				best, bestScore = c, score
			}
		}
	}

	if best != nil && bestScore >= UpdateSimilarity {
		best.add(key, sim.ContentHash, authorID, res, now)
		best.infer()
		return ClusterMatch{
			ClusterID:  best.ID,
			Similarity: bestScore,
			Duplicate:  bestScore > DuplicateSimilarity,
			Type:       best.Type,
		}
	}

	c := &ContentCluster{
		ID:        uuid.NewString(),
		Type:      ClusterUnknown,
		FirstSeen: now,
		Authors:   map[string]bool{},
	}
	c.add(key, sim.ContentHash, authorID, res, now)
	c.infer()
	s.clusters[c.ID] = c
	clustersCreated.Inc()
	return ClusterMatch{
		ClusterID:  c.ID,
		Similarity: bestScore,
		Created:    true,
		Type:       c.Type,
	}
}

func (c *ContentCluster) add(key, contentHash, authorID string, res *analyzer.Result, now time.Time) {
	if !containsString(c.SemanticHashes, key) {
		c.SemanticHashes = append(c.SemanticHashes, key)
		if len(c.SemanticHashes) > MaxClusterMembers {
			c.SemanticHashes = c.SemanticHashes[len(c.SemanticHashes)-MaxClusterMembers:]
		}
	}
	if !containsString(c.ContentHashes, contentHash) {
		c.ContentHashes = append(c.ContentHashes, contentHash)
		if len(c.ContentHashes) > MaxClusterMembers {
			c.ContentHashes = c.ContentHashes[len(c.ContentHashes)-MaxClusterMembers:]
		}
	}
	c.MessageCount++
	c.Authors[authorID] = true
	c.LastSeen = now
	if res != nil {
		c.sumSpam += res.Spam
		c.sumScam += res.Scam
		c.sumPromo += res.Promotional
		c.sumTox += res.Toxicity
	}
}

// re-derives the cluster type from its members, unless a moderator labeled it
func (c *ContentCluster) infer() {
	if c.Labeled {
		return
	}
	n := float64(c.MessageCount)
	spam, scam, promo, tox := c.sumSpam/n, c.sumScam/n, c.sumPromo/n, c.sumTox/n
	switch {
	case spam >= 50 || scam >= 50:
		c.Type, c.Confidence = ClusterSpam, max(spam, scam)
	case promo >= 50:
		c.Type, c.Confidence = ClusterPromotional, promo
	case c.MessageCount >= 5 && c.AuthorCount() >= 3 && spam >= 20:
		// the same low-grade spam from several accounts looks coordinated
		c.Type, c.Confidence = ClusterSpam, min(100, 40+float64(c.AuthorCount())*5)
	case c.MessageCount >= 5 && spam < 20 && tox < 20:
		c.Type, c.Confidence = ClusterLegitimate, min(100, 50+n)
	default:
		c.Type, c.Confidence = ClusterUnknown, 0
	}
}

// Moderator label for a cluster. Sticks until the cluster expires.
func (s *ClusterStore) SetType(id string, t ClusterType) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	c, ok := s.clusters[id]
	if !ok {
		return ErrClusterNotFound
	}
	c.Type = t
	c.Confidence = 100
	c.Labeled = true
	return nil
}

// Returns a copy of the cluster.
func (s *ClusterStore) Get(id string) (*ContentCluster, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	c, ok := s.clusters[id]
	if !ok {
		return nil, ErrClusterNotFound
	}
	cp := *c
	cp.SemanticHashes = append([]string(nil), c.SemanticHashes...)
	cp.ContentHashes = append([]string(nil), c.ContentHashes...)
	cp.Authors = make(map[string]bool, len(c.Authors))
	for k, v := range c.Authors {
		cp.Authors[k] = v
	}
	return &cp, nil
}

func (s *ClusterStore) Len() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return len(s.clusters)
}

// Drops clusters last seen before the cutoff. Returns how many were dropped.
func (s *ClusterStore) Prune(cutoff time.Time) int {
	s.lk.Lock()
	defer s.lk.Unlock()
	n := 0
	for id, c := range s.clusters {
		if c.LastSeen.Before(cutoff) {
			delete(s.clusters, id)
			n++
		}
	}
	return n
}

func containsString(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
