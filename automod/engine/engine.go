package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/spaolacci/murmur3"
)

var (
	// upper bound on content analysis for one message; expiry takes the fallback path
	AnalysisTimeout = 5 * time.Second
	// number of perm bans automation can issue per day, across all users (circuit breaker)
	QuotaPermBanDay = 20
)

// The behavioral layer as seen by the engine. Implemented by *behavior.Layer.
type BehavioralLayer interface {
	AnalyzeAdvanced(ctx context.Context, text, authorID, language string, actx *analyzer.Context) (*behavior.EnrichedAnalysis, error)
	LearnFromFeedback(ctx context.Context, analysisID string, action models.ActionKind, wasCorrect bool) (int, error)
}

var _ BehavioralLayer = (*behavior.Layer)(nil)

// What the transport and review collaborators call. Implemented by *Engine.
type DecisionEngine interface {
	ModerateContent(ctx context.Context, contentID, text, authorID string, mctx *ModerationContext) (*Decision, error)
	CheckUserModerationStatus(ctx context.Context, userID string) (*UserModerationStatus, error)
	SetShadowBan(ctx context.Context, userID string, enabled bool) error
	ProcessAppeal(ctx context.Context, actionID, appellantID, reason string) (*AppealResult, error)
	ReportContent(ctx context.Context, reporterID, targetUserID, contentID, reason string) (*models.UserReport, error)
	LearnFromFeedback(ctx context.Context, analysisID string, action models.ActionKind, wasCorrect bool) (int, error)
	ListQueue(ctx context.Context, filter store.QueueFilter) ([]models.ModerationQueueItem, error)
	GetQueueItem(ctx context.Context, id string) (*models.ModerationQueueItem, error)
	AssignQueueItem(ctx context.Context, id, moderatorID string) (*models.ModerationQueueItem, error)
	ResolveQueueItem(ctx context.Context, id, moderatorID string, resolution models.ActionKind, notes string) (*models.ModerationQueueItem, error)
	UpdateUserTrustScore(ctx context.Context, userID string, event TrustEvent) (*models.UserTrustScore, error)
}

var _ DecisionEngine = (*Engine)(nil)

// Runtime for scoring messages, recording moderation actions, and maintaining trust scores.
//
// Logger, Layer, Store, Counters and Flags must all be set. Notifier and Now are optional.
type Engine struct {
	Logger   *slog.Logger
	Layer    BehavioralLayer
	Store    store.Store
	Counters countstore.CountStore
	Flags    flagstore.FlagStore
	// sends alerts for critical decisions (optional)
	Notifier Notifier
	Now      func() time.Time

	// trust records are read-modify-write; updates for one user are serialized through a stripe
	trustStripes [64]sync.Mutex
}

func (eng *Engine) now() time.Time {
	if eng.Now != nil {
		return eng.Now()
	}
	return time.Now()
}

func (eng *Engine) lockTrust(userID string) func() {
	lk := &eng.trustStripes[murmur3.Sum32([]byte(userID))%uint32(len(eng.trustStripes))]
	lk.Lock()
	return lk.Unlock
}
