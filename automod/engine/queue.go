package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/google/uuid"
)

func (eng *Engine) ListQueue(ctx context.Context, filter store.QueueFilter) ([]models.ModerationQueueItem, error) {
	return eng.Store.ListQueueItems(ctx, filter)
}

func (eng *Engine) GetQueueItem(ctx context.Context, id string) (*models.ModerationQueueItem, error) {
	item, err := eng.Store.GetQueueItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("queue item %s: %w", id, err)
	}
	return item, nil
}

// Moves a pending item to in_review for the moderator.
func (eng *Engine) AssignQueueItem(ctx context.Context, id, moderatorID string) (*models.ModerationQueueItem, error) {
	if moderatorID == "" {
		return nil, fmt.Errorf("%w: empty moderator ID", ErrInvalidInput)
	}
	item, err := eng.GetQueueItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.QueuePending {
		return nil, fmt.Errorf("%w: queue item %s is %s", ErrInvalidTransition, id, item.Status)
	}
	now := eng.now()
	item.Status = models.QueueInReview
	item.AssignedTo = moderatorID
	item.AssignedAt = &now
	if err := eng.transition(ctx, item, models.QueuePending); err != nil {
		return nil, err
	}
	return item, nil
}

// Closes an in_review item with the moderator's verdict.
//
// For content items, a verdict that agrees with the automated flags is fed back to the adaptive rules, and the verdict is enforced. For appeal items, a restore verdict overrides the appealed action.
func (eng *Engine) ResolveQueueItem(ctx context.Context, id, moderatorID string, resolution models.ActionKind, notes string) (*models.ModerationQueueItem, error) {
	if moderatorID == "" || resolution == "" {
		return nil, fmt.Errorf("%w: moderator and resolution required", ErrInvalidInput)
	}
	item, err := eng.GetQueueItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.QueueInReview {
		return nil, fmt.Errorf("%w: queue item %s is %s", ErrInvalidTransition, id, item.Status)
	}
	now := eng.now()
	item.Status = models.QueueResolved
	item.ResolvedBy = moderatorID
	item.ResolvedAt = &now
	item.Resolution = resolution
	item.ResolutionNotes = notes
	if err := eng.transition(ctx, item, models.QueueInReview); err != nil {
		return nil, err
	}
	logger := eng.Logger.With("queueItem", id, "moderator", moderatorID, "resolution", resolution)

	switch item.Kind {
	case models.QueueKindAppeal:
		if resolution != models.ActionRestore {
			logger.Info("appeal denied")
			return item, nil
		}
		orig, err := eng.Store.GetModerationAction(ctx, item.ActionID)
		if err != nil {
			return item, fmt.Errorf("appealed action %s: %w", item.ActionID, err)
		}
		if _, err := eng.restoreAction(ctx, orig, models.ActorHuman, moderatorID, "appeal upheld by moderator", "", now); err != nil {
			return item, err
		}
		logger.Info("appeal upheld")
	default:
		if item.AnalysisID != "" {
			wasCorrect := resolution != models.ActionApprove && resolution != models.ActionRestore
			if _, err := eng.LearnFromFeedback(ctx, item.AnalysisID, resolution, wasCorrect); err != nil {
				logger.Warn("failed to apply feedback", "analysis", item.AnalysisID, "err", err)
			}
		}
		if err := eng.enforceResolution(ctx, item, moderatorID, resolution); err != nil {
			return item, err
		}
	}
	return item, nil
}

func (eng *Engine) transition(ctx context.Context, item *models.ModerationQueueItem, from models.QueueStatus) error {
	err := eng.Store.TransitionQueueItem(ctx, item, from)
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: queue item %s changed concurrently", ErrInvalidTransition, item.ID)
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// records the moderator's own action, then hides or restores the content to match it
func (eng *Engine) enforceResolution(ctx context.Context, item *models.ModerationQueueItem, moderatorID string, resolution models.ActionKind) error {
	now := eng.now()
	if resolution == models.ActionApprove || resolution == models.ActionRestore {
		if item.ActionID != "" {
			orig, err := eng.Store.GetModerationAction(ctx, item.ActionID)
			if err != nil {
				return fmt.Errorf("queued action %s: %w", item.ActionID, err)
			}
			// an automated enforcement the moderator disagreed with is overridden, not edited
			if orig.Action.IsViolation() {
				_, err := eng.restoreAction(ctx, orig, models.ActorHuman, moderatorID, "cleared by moderator", "", now)
				return err
			}
		}
		return eng.unhide(ctx, item.ContentID)
	}
	if !resolution.IsViolation() {
		return nil
	}
	act := &models.ModerationAction{
		ID:           uuid.NewString(),
		TargetID:     item.ContentID,
		TargetType:   item.ContentType,
		TargetUserID: item.AuthorID,
		ActorType:    models.ActorHuman,
		ActorID:      moderatorID,
		Action:       resolution,
		Severity:     item.Severity,
		Reason:       "resolved from review queue",
		AnalysisID:   item.AnalysisID,
		CreatedAt:    now,
	}
	if d := DurationFor(resolution); d > 0 {
		exp := now.Add(d)
		act.ExpiresAt = &exp
		act.DurationSeconds = int64(d.Seconds())
	}
	if item.ActionID != "" {
		orig := item.ActionID
		act.OverridesActionID = &orig
	}
	if err := eng.Store.CreateModerationAction(ctx, act); err != nil {
		return fmt.Errorf("%w: saving moderator action: %w", ErrPersistence, err)
	}
	actionNewCount.WithLabelValues(string(act.Action)).Inc()
	if err := eng.applySideEffect(ctx, &Decision{ContentID: item.ContentID, Action: resolution}); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if ev, ok := TrustEventForAction(resolution); ok && item.AuthorID != "" {
		if _, err := eng.UpdateUserTrustScore(ctx, item.AuthorID, ev); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	return nil
}

// Pass-through to the behavioral layer. Repeated calls for one analysis count repeatedly; callers deduplicate.
func (eng *Engine) LearnFromFeedback(ctx context.Context, analysisID string, action models.ActionKind, wasCorrect bool) (int, error) {
	return eng.Layer.LearnFromFeedback(ctx, analysisID, action, wasCorrect)
}
