package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/require"
)

// Behavioral layer returning fixed scores, for exercising fusion and failure handling.
type stubLayer struct {
	res          analyzer.Result
	behaviorRisk float64
	dupSpam      bool
	err          error
	explode      bool
	// returns neither scores nor an error
	empty bool
	delay time.Duration

	lk       sync.Mutex
	feedback []bool
}

func (s *stubLayer) AnalyzeAdvanced(ctx context.Context, text, authorID, language string, actx *analyzer.Context) (*behavior.EnrichedAnalysis, error) {
	if s.explode {
		panic("scorer exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.empty {
		return nil, nil
	}
	res := s.res
	if res.Languages == nil {
		res.Languages = []string{"en"}
	}
	out := &behavior.EnrichedAnalysis{
		Content:                &res,
		Similarity:             analyzer.ContentFingerprint(text),
		UserBehaviorRisk:       s.behaviorRisk,
		DuplicateInSpamCluster: s.dupSpam,
		Cluster:                behavior.ClusterMatch{ClusterID: "cluster-1", Duplicate: s.dupSpam},
	}
	if s.dupSpam {
		out.Cluster.Type = behavior.ClusterSpam
	}
	return out, nil
}

func (s *stubLayer) LearnFromFeedback(ctx context.Context, analysisID string, action models.ActionKind, wasCorrect bool) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.feedback = append(s.feedback, wasCorrect)
	return 1, nil
}

func stubEngine(layer *stubLayer) (*Engine, *store.MemStore) {
	st := store.NewMemStore()
	return &Engine{
		Logger:   slog.Default(),
		Layer:    layer,
		Store:    st,
		Counters: countstore.NewMemCountStore(),
		Flags:    flagstore.NewMemFlagStore(),
	}, st
}

// a long-standing user with the given score and some message history
func seedTrust(t *testing.T, eng *Engine, userID string, score float64) {
	now := time.Now()
	ts := NewTrustScore(userID, now.Add(-365*24*time.Hour))
	ts.OverallTrustScore = score
	ts.MessagesCount = 500
	refreshDerived(ts, now)
	require.NoError(t, eng.Store.SaveTrustScore(context.Background(), ts))
}

func seedAction(t *testing.T, eng *Engine, id, userID string, action models.ActionKind, sev models.Severity, age time.Duration) *models.ModerationAction {
	act := &models.ModerationAction{
		ID:           id,
		TargetID:     "msg-" + id,
		TargetType:   models.TargetMessage,
		TargetUserID: userID,
		ActorType:    models.ActorAutomated,
		Action:       action,
		Severity:     sev,
		Reason:       "seeded",
		CreatedAt:    time.Now().Add(-age),
	}
	require.NoError(t, eng.Store.CreateModerationAction(context.Background(), act))
	return act
}

type recordingNotifier struct {
	lk   sync.Mutex
	sent []*Decision
}

func (n *recordingNotifier) SendDecision(ctx context.Context, dec *Decision) error {
	n.lk.Lock()
	defer n.lk.Unlock()
	n.sent = append(n.sent, dec)
	return nil
}

var errStoreDown = errors.New("store unavailable")

// fails every action write
type failingActionStore struct {
	*store.MemStore
}

func (s failingActionStore) CreateModerationAction(ctx context.Context, act *models.ModerationAction) error {
	return errStoreDown
}

// panics on similarity writes, which only happen for fully scored messages
type panickingSimilarityStore struct {
	*store.MemStore
}

func (s panickingSimilarityStore) CreateSimilarity(ctx context.Context, sim *models.ContentSimilarity) error {
	panic("similarity table corrupted")
}
