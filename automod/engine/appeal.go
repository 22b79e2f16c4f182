package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/models"

	"github.com/google/uuid"
)

type AppealOutcome string

const (
	AppealApproved AppealOutcome = "approved"
	AppealRejected AppealOutcome = "rejected"
	AppealQueued   AppealOutcome = "queued"
)

var (
	// appeals at or below this many characters (after trimming) are never auto-approved
	MinAppealReasonLength = 20
	// trust score an appellant must exceed for auto-approval
	AppealTrustThreshold = 70.0
	// a ban this recent makes appeals of critical actions auto-reject
	AppealBanLookback = 30 * 24 * time.Hour
)

type AppealResult struct {
	Outcome AppealOutcome `json:"outcome"`
	// set when approved
	RestoreActionID string `json:"restoreActionId,omitempty"`
	// set when queued
	QueueItemID string `json:"queueItemId,omitempty"`
	Reason      string `json:"reason"`
}

// Adjudicates a user's challenge to an earlier action. Approval writes a new restore action that overrides the original; the original record is never changed.
//
// Returns ErrNotFound if the action does not exist, ErrInvalidInput if it cannot be appealed by this user, and ErrInvalidTransition if it was already overridden.
func (eng *Engine) ProcessAppeal(ctx context.Context, actionID, appellantID, reason string) (*AppealResult, error) {
	logger := eng.Logger.With("action", actionID, "appellant", appellantID)
	now := eng.now()

	orig, err := eng.Store.GetModerationAction(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("appeal of action %s: %w", actionID, err)
	}
	if orig.TargetUserID != appellantID {
		return nil, fmt.Errorf("%w: action %s does not target %s", ErrInvalidInput, actionID, appellantID)
	}
	if !orig.Action.IsViolation() {
		return nil, fmt.Errorf("%w: %s actions cannot be appealed", ErrInvalidInput, orig.Action)
	}

	history, err := eng.Store.GetModerationActionsForUser(ctx, appellantID)
	if err != nil {
		return nil, fmt.Errorf("reading moderation history: %w", err)
	}
	banHistory, recentBan := false, false
	for _, a := range history {
		if a.OverridesActionID != nil && *a.OverridesActionID == orig.ID {
			return nil, fmt.Errorf("%w: action %s already overridden by %s", ErrInvalidTransition, orig.ID, a.ID)
		}
		if a.Action.IsBan() {
			banHistory = true
			if now.Sub(a.CreatedAt) < AppealBanLookback {
				recentBan = true
			}
		}
	}

	trust, err := eng.GetTrustScore(ctx, appellantID)
	if err != nil {
		return nil, fmt.Errorf("reading trust score: %w", err)
	}

	switch {
	case orig.Severity == models.SeverityLow &&
		trust.OverallTrustScore > AppealTrustThreshold &&
		!banHistory &&
		len(strings.TrimSpace(reason)) > MinAppealReasonLength:
		restore, err := eng.restoreAction(ctx, orig, models.ActorAutomated, "", "appeal auto-approved", reason, now)
		if restore == nil {
			return nil, err
		}
		appealCount.WithLabelValues(string(AppealApproved)).Inc()
		logger.Info("appeal auto-approved", "restore", restore.ID)
		// a failed un-hide is reported alongside the already recorded approval
		return &AppealResult{Outcome: AppealApproved, RestoreActionID: restore.ID, Reason: "low severity action, trusted user"}, err

	case orig.Severity == models.SeverityCritical && recentBan:
		appealCount.WithLabelValues(string(AppealRejected)).Inc()
		logger.Info("appeal auto-rejected")
		return &AppealResult{Outcome: AppealRejected, Reason: "critical action with a recent ban"}, nil
	}

	item := &models.ModerationQueueItem{
		ID:          uuid.NewString(),
		Kind:        models.QueueKindAppeal,
		ContentID:   orig.TargetID,
		ContentType: orig.TargetType,
		AuthorID:    appellantID,
		ActionID:    orig.ID,
		AnalysisID:  orig.AnalysisID,
		Priority:    PriorityFor(orig.Severity),
		Severity:    orig.Severity,
		Reasons:     []string{"appeal: " + strings.TrimSpace(reason)},
		Status:      models.QueuePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := eng.Store.CreateQueueItem(ctx, item); err != nil {
		return nil, fmt.Errorf("%w: enqueueing appeal: %w", ErrPersistence, err)
	}
	appealCount.WithLabelValues(string(AppealQueued)).Inc()
	queueItemCount.WithLabelValues(string(item.Kind), string(item.Priority)).Inc()
	logger.Info("appeal queued for review", "queueItem", item.ID)
	return &AppealResult{Outcome: AppealQueued, QueueItemID: item.ID, Reason: "needs human review"}, nil
}

// writes a restore action overriding orig, and un-hides the target message
func (eng *Engine) restoreAction(ctx context.Context, orig *models.ModerationAction, actor models.ActorType, actorID, why, appealReason string, now time.Time) (*models.ModerationAction, error) {
	origID := orig.ID
	restore := &models.ModerationAction{
		ID:                uuid.NewString(),
		TargetID:          orig.TargetID,
		TargetType:        orig.TargetType,
		TargetUserID:      orig.TargetUserID,
		ActorType:         actor,
		ActorID:           actorID,
		Action:            models.ActionRestore,
		Severity:          models.SeverityLow,
		Reason:            why,
		Evidence:          orig.Evidence,
		AnalysisID:        orig.AnalysisID,
		OverridesActionID: &origID,
		AppealReason:      appealReason,
		CreatedAt:         now,
	}
	if err := eng.Store.CreateModerationAction(ctx, restore); err != nil {
		return nil, fmt.Errorf("%w: saving restore action: %w", ErrPersistence, err)
	}
	actionNewCount.WithLabelValues(string(restore.Action)).Inc()
	if orig.TargetType == models.TargetMessage {
		if err := eng.unhide(ctx, orig.TargetID); err != nil {
			return restore, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	return restore, nil
}

// content that was never hidden is fine
func (eng *Engine) unhide(ctx context.Context, contentID string) error {
	if err := eng.Store.RestoreMessage(ctx, contentID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("restoring message: %w", err)
	}
	if err := eng.Flags.Remove(ctx, flagstore.ContentKey(contentID), []string{flagstore.FlagHidden}); err != nil {
		return fmt.Errorf("clearing hidden flag: %w", err)
	}
	return nil
}
