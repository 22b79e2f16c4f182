package store

import (
	"context"
	"errors"
	"time"

	"github.com/hearthchat/moderation/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// a conditional update found the record in an unexpected state
	ErrConflict = errors.New("record changed concurrently")
)

type QueueFilter struct {
	// empty matches every status
	Status models.QueueStatus
	// empty matches every kind
	Kind       models.QueueKind
	AssignedTo string
	Limit      int
}

// Durable persistence for the moderation core.
//
// Actions, analyses, similarity records and reports are append-only. Trust scores are upserted. Queue items change state only through TransitionQueueItem.
type Store interface {
	GetTrustScore(ctx context.Context, userID string) (*models.UserTrustScore, error)
	SaveTrustScore(ctx context.Context, ts *models.UserTrustScore) error

	CreateModerationAction(ctx context.Context, act *models.ModerationAction) error
	GetModerationAction(ctx context.Context, id string) (*models.ModerationAction, error)
	// every action targeting the user, newest first
	GetModerationActionsForUser(ctx context.Context, userID string) ([]models.ModerationAction, error)
	// violation actions still in force: not expired, not past expiry, and not overridden by a later action
	GetActiveModerationActions(ctx context.Context, userID string, now time.Time) ([]models.ModerationAction, error)
	// marks timed actions whose expiry has passed; returns how many were marked
	ExpireModerationActions(ctx context.Context, now time.Time) (int, error)

	CreateAnalysis(ctx context.Context, a *models.ModerationAnalysis) error
	GetAnalysis(ctx context.Context, id string) (*models.ModerationAnalysis, error)
	// newest first
	RecentAnalysesForUser(ctx context.Context, userID string, limit int) ([]models.ModerationAnalysis, error)

	CreateSimilarity(ctx context.Context, sim *models.ContentSimilarity) error

	CreateQueueItem(ctx context.Context, item *models.ModerationQueueItem) error
	GetQueueItem(ctx context.Context, id string) (*models.ModerationQueueItem, error)
	// most urgent first, then oldest first
	ListQueueItems(ctx context.Context, filter QueueFilter) ([]models.ModerationQueueItem, error)
	// writes the item only if its stored status still equals from; otherwise ErrConflict
	TransitionQueueItem(ctx context.Context, item *models.ModerationQueueItem, from models.QueueStatus) error

	CreateReport(ctx context.Context, r *models.UserReport) error
	GetReportsByReporter(ctx context.Context, reporterID string) ([]models.UserReport, error)

	HideMessage(ctx context.Context, contentID string) error
	RestoreMessage(ctx context.Context, contentID string) error
	IsHidden(ctx context.Context, contentID string) (bool, error)
}
